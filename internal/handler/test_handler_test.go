package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/handler"
	"github.com/persona-labs/persona-api/internal/models"
	"github.com/persona-labs/persona-api/internal/repository"
	"github.com/persona-labs/persona-api/internal/service"
)

// apiEnv boots the API over an in-memory sqlite database, with an auth
// shim that reads the acting principal from request headers.
type apiEnv struct {
	app      *fiber.App
	students repository.StudentRepository
	tests    service.TestService
	bank     service.QuestionBankService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.BaseTest{},
		&models.Metric{},
		&models.Test{},
		&models.Section{},
		&models.Question{},
		&models.SubQuestion{},
		&models.TestAttempt{},
		&models.Answer{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	baseTestRepo := repository.NewBaseTestRepository(db)
	metricRepo := repository.NewMetricRepository(db)
	testRepo := repository.NewTestRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	answerRepo := repository.NewAnswerRepository(db)

	catalogService := service.NewCatalogService(testRepo, nil, 0, logger)
	testService := service.NewTestService(testRepo, baseTestRepo, validate, catalogService, logger)
	bankService := service.NewQuestionBankService(testRepo, sectionRepo, questionRepo, metricRepo, answerRepo, validate, logger)
	metricService := service.NewMetricService(metricRepo, baseTestRepo, validate, logger)
	baseTestService := service.NewBaseTestService(baseTestRepo, validate, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	attemptService := service.NewAttemptService(attemptRepo, answerRepo, testRepo, studentRepo, validate, nil, nil, logger)

	baseTestHandler := handler.NewBaseTestHandler(baseTestService, catalogService, logger)
	metricHandler := handler.NewMetricHandler(metricService, logger)
	testHandler := handler.NewTestHandler(testService, bankService, logger)
	studentHandler := handler.NewStudentHandler(studentService, attemptService, logger)
	attemptHandler := handler.NewAttemptHandler(attemptService, logger)

	app := fiber.New()
	api := app.Group("/api/v1", principalFromHeaders)

	baseTestHandler.Register(api.Group("/admin/base-tests"))
	baseTestHandler.RegisterCatalog(api.Group("/base-tests"))
	metricHandler.Register(api.Group("/admin/metrics"))
	testHandler.Register(api.Group("/admin/tests"))
	testHandler.RegisterPublic(api.Group("/tests"))
	studentHandler.Register(api.Group("/students"))
	attemptHandler.Register(api.Group("/attempts"))

	return &apiEnv{
		app:      app,
		students: studentRepo,
		tests:    testService,
		bank:     bankService,
	}
}

// principalFromHeaders stands in for the JWT middleware: tests declare
// who they act as through X-Student-ID and X-Role.
func principalFromHeaders(c *fiber.Ctx) error {
	if id, err := strconv.ParseUint(c.Get("X-Student-ID"), 10, 64); err == nil {
		c.Locals("user_id", uint(id))
	}
	if role := c.Get("X-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func (e *apiEnv) request(t *testing.T, method, path string, payload interface{}, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp
}

func (e *apiEnv) admin(t *testing.T, method, path string, payload interface{}) *http.Response {
	return e.request(t, method, path, payload, map[string]string{"X-Role": service.RoleAdmin})
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func TestTestHandler_AuthoringLifecycle(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.admin(t, http.MethodPost, "/api/v1/admin/base-tests", dto.BaseTestCreateRequest{Code: "BIG5", Type: "PERSONALITY"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var familyBody struct {
		Data dto.BaseTestResponse `json:"data"`
	}
	decodeResponse(t, resp, &familyBody)

	resp = env.admin(t, http.MethodPost, "/api/v1/admin/metrics", dto.MetricCreateRequest{
		BaseTestID: familyBody.Data.ID,
		Code:       "O",
		Label:      "Openness",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var metricBody struct {
		Data dto.MetricResponse `json:"data"`
	}
	decodeResponse(t, resp, &metricBody)

	resp = env.admin(t, http.MethodPost, "/api/v1/admin/tests", dto.TestCreateRequest{
		BaseTestID: familyBody.Data.ID,
		Title:      "Personality Profile",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var draftBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decodeResponse(t, resp, &draftBody)
	require.Equal(t, models.TestStatusDraft, draftBody.Data.Status)
	testID := draftBody.Data.ID

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/sections", testID), dto.SectionRequest{Title: "Disposition"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var treeBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decodeResponse(t, resp, &treeBody)
	sectionID := treeBody.Data.Sections[0].ID

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/sections/%d/questions", testID, sectionID), dto.QuestionRequest{
		QuestionText: "How do you react to new ideas?",
		AnswerType:   models.AnswerTypeScale,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeResponse(t, resp, &treeBody)
	questionID := treeBody.Data.Sections[0].Questions[0].ID

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/questions/%d/sub-questions", testID, questionID), dto.SubQuestionRequest{
		SubQuestionText: "I enjoy exploring unfamiliar topics",
		MetricID:        metricBody.Data.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeResponse(t, resp, &treeBody)
	require.Equal(t, "O", treeBody.Data.Sections[0].Questions[0].SubQuestions[0].MetricCode)

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/publish", testID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var publishedBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decodeResponse(t, resp, &publishedBody)
	require.Equal(t, models.TestStatusPublished, publishedBody.Data.Status)

	// Published versions are frozen.
	title := "Renamed"
	resp = env.admin(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/tests/%d", testID), dto.TestUpdateRequest{Title: &title})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/activation", testID), dto.SetActiveRequest{Active: true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activeBody struct {
		Data    dto.TestResponse `json:"data"`
		Message string           `json:"message"`
	}
	decodeResponse(t, resp, &activeBody)
	require.True(t, activeBody.Data.Active)
	require.Equal(t, "test activated", activeBody.Message)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/base-tests/%d/active-test", familyBody.Data.ID), nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var catalogBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decodeResponse(t, resp, &catalogBody)
	require.Equal(t, testID, catalogBody.Data.ID)
}

func TestTestHandler_PublishEmptyTestRejected(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.admin(t, http.MethodPost, "/api/v1/admin/base-tests", dto.BaseTestCreateRequest{Code: "APT", Type: "APTITUDE"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var familyBody struct {
		Data dto.BaseTestResponse `json:"data"`
	}
	decodeResponse(t, resp, &familyBody)

	resp = env.admin(t, http.MethodPost, "/api/v1/admin/tests", dto.TestCreateRequest{
		BaseTestID: familyBody.Data.ID,
		Title:      "Empty Draft",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var draftBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decodeResponse(t, resp, &draftBody)

	resp = env.admin(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tests/%d/publish", draftBody.Data.ID), nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errBody struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &errBody)
	require.False(t, errBody.Success)
}

func TestTestHandler_PublicGetHidesDrafts(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.admin(t, http.MethodPost, "/api/v1/admin/base-tests", dto.BaseTestCreateRequest{Code: "BIG5", Type: "PERSONALITY"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var familyBody struct {
		Data dto.BaseTestResponse `json:"data"`
	}
	decodeResponse(t, resp, &familyBody)

	draft, err := env.tests.Create(context.Background(), dto.TestCreateRequest{
		BaseTestID: familyBody.Data.ID,
		Title:      "Unreleased Draft",
	})
	require.NoError(t, err)

	student := map[string]string{"X-Student-ID": "1", "X-Role": service.RoleStudent}
	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/tests/%d", draft.ID), nil, student)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.admin(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/tests/%d", draft.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTestHandler_GetMissingTest(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.admin(t, http.MethodGet, "/api/v1/admin/tests/9999", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMetricHandler_DuplicateCodeConflicts(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.admin(t, http.MethodPost, "/api/v1/admin/base-tests", dto.BaseTestCreateRequest{Code: "BIG5", Type: "PERSONALITY"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var familyBody struct {
		Data dto.BaseTestResponse `json:"data"`
	}
	decodeResponse(t, resp, &familyBody)

	payload := dto.MetricCreateRequest{BaseTestID: familyBody.Data.ID, Code: "E", Label: "Extraversion"}
	resp = env.admin(t, http.MethodPost, "/api/v1/admin/metrics", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.admin(t, http.MethodPost, "/api/v1/admin/metrics", payload)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

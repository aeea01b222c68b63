package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

// TestHandler wires version lifecycle and question bank endpoints.
type TestHandler struct {
	tests     service.TestService
	questions service.QuestionBankService
	logger    zerolog.Logger
}

// NewTestHandler constructs the handler.
func NewTestHandler(tests service.TestService, questions service.QuestionBankService, logger zerolog.Logger) *TestHandler {
	return &TestHandler{
		tests:     tests,
		questions: questions,
		logger:    logger.With().Str("component", "test_handler").Logger(),
	}
}

// Register attaches version lifecycle and question bank routes to the
// router group. Structural edits nest under the owning test so draft
// gating has one natural enforcement point.
func (h *TestHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/versions", h.createVersion)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/publish", h.publish)
	router.Post("/:id/activation", h.setActive)

	router.Post("/:id/sections", h.addSection)
	router.Patch("/:id/sections/:sectionId", h.updateSection)
	router.Delete("/:id/sections/:sectionId", h.deleteSection)
	router.Post("/:id/sections/:sectionId/questions", h.addQuestion)
	router.Patch("/:id/questions/:questionId", h.updateQuestion)
	router.Delete("/:id/questions/:questionId", h.deleteQuestion)
	router.Post("/:id/questions/:questionId/sub-questions", h.addSubQuestion)
	router.Patch("/:id/sub-questions/:subQuestionId", h.updateSubQuestion)
	router.Delete("/:id/sub-questions/:subQuestionId", h.deleteSubQuestion)
}

// RegisterPublic attaches the read-only listing students may browse.
func (h *TestHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *TestHandler) create(c *fiber.Ctx) error {
	var payload dto.TestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.tests.Create(c.Context(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create test")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "test created", test)
}

func (h *TestHandler) createVersion(c *fiber.Ctx) error {
	var payload dto.VersionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	version, err := h.tests.CreateVersion(c.Context(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create version")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "version created", version)
}

func (h *TestHandler) list(c *fiber.Ctx) error {
	tests, err := h.tests.List(c.Context(), principalFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list tests")
	}

	return utils.SendSuccess(c, "tests retrieved", tests)
}

func (h *TestHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	test, err := h.tests.Get(c.Context(), principalFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch test")
	}

	return utils.SendSuccess(c, "test retrieved", test)
}

func (h *TestHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.TestUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.tests.Update(c.Context(), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update test")
	}

	return utils.SendSuccess(c, "test updated", test)
}

func (h *TestHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.tests.Delete(c.Context(), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete test")
	}

	return utils.SendSuccess(c, "test deleted", fiber.Map{"id": id})
}

func (h *TestHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	test, err := h.tests.Publish(c.Context(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to publish test")
	}

	return utils.SendSuccess(c, "test published", test)
}

func (h *TestHandler) setActive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SetActiveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.tests.SetActive(c.Context(), id, payload.Active)
	if err != nil {
		return handleError(c, h.logger, err, "failed to change activation")
	}

	message := "test deactivated"
	if payload.Active {
		message = "test activated"
	}

	return utils.SendSuccess(c, message, test)
}

func (h *TestHandler) addSection(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.AddSection(c.Context(), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to add section")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "section added", test)
}

func (h *TestHandler) updateSection(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	sectionID, err := parseUintParam(c, "sectionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.UpdateSection(c.Context(), id, sectionID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update section")
	}

	return utils.SendSuccess(c, "section updated", test)
}

func (h *TestHandler) deleteSection(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	sectionID, err := parseUintParam(c, "sectionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.questions.DeleteSection(c.Context(), id, sectionID); err != nil {
		return handleError(c, h.logger, err, "failed to delete section")
	}

	return utils.SendSuccess(c, "section deleted", fiber.Map{"id": sectionID})
}

func (h *TestHandler) addQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	sectionID, err := parseUintParam(c, "sectionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.AddQuestion(c.Context(), id, sectionID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to add question")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question added", test)
}

func (h *TestHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.UpdateQuestion(c.Context(), id, questionID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update question")
	}

	return utils.SendSuccess(c, "question updated", test)
}

func (h *TestHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.questions.DeleteQuestion(c.Context(), id, questionID); err != nil {
		return handleError(c, h.logger, err, "failed to delete question")
	}

	return utils.SendSuccess(c, "question deleted", fiber.Map{"id": questionID})
}

func (h *TestHandler) addSubQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SubQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.AddSubQuestion(c.Context(), id, questionID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to add sub-question")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "sub-question added", test)
}

func (h *TestHandler) updateSubQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	subQuestionID, err := parseUintParam(c, "subQuestionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SubQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	test, err := h.questions.UpdateSubQuestion(c.Context(), id, subQuestionID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update sub-question")
	}

	return utils.SendSuccess(c, "sub-question updated", test)
}

func (h *TestHandler) deleteSubQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	subQuestionID, err := parseUintParam(c, "subQuestionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.questions.DeleteSubQuestion(c.Context(), id, subQuestionID); err != nil {
		return handleError(c, h.logger, err, "failed to delete sub-question")
	}

	return utils.SendSuccess(c, "sub-question deleted", fiber.Map{"id": subQuestionID})
}

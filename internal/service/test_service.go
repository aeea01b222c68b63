package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/models"
	"github.com/persona-labs/persona-api/internal/repository"
)

// CatalogInvalidator drops cached catalog entries after lifecycle
// changes. Satisfied by CatalogService; nil disables invalidation.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, baseTestID uint) error
}

// TestService manages the version lifecycle of test families.
type TestService interface {
	Create(ctx context.Context, payload dto.TestCreateRequest) (dto.TestResponse, error)
	CreateVersion(ctx context.Context, payload dto.VersionCreateRequest) (dto.TestResponse, error)
	Get(ctx context.Context, principal Principal, id uint) (dto.TestResponse, error)
	List(ctx context.Context, principal Principal) ([]dto.TestResponse, error)
	Update(ctx context.Context, id uint, payload dto.TestUpdateRequest) (dto.TestResponse, error)
	Delete(ctx context.Context, id uint) error
	Publish(ctx context.Context, id uint) (dto.TestResponse, error)
	SetActive(ctx context.Context, id uint, active bool) (dto.TestResponse, error)
}

type testService struct {
	tests     repository.TestRepository
	baseTests repository.BaseTestRepository
	validator *validator.Validate
	catalog   CatalogInvalidator
	logger    zerolog.Logger
}

// NewTestService constructs a TestService instance.
func NewTestService(tests repository.TestRepository, baseTests repository.BaseTestRepository, validate *validator.Validate, catalog CatalogInvalidator, logger zerolog.Logger) TestService {
	return &testService{
		tests:     tests,
		baseTests: baseTests,
		validator: validate,
		catalog:   catalog,
		logger:    logger.With().Str("component", "test_service").Logger(),
	}
}

func (s *testService) Create(ctx context.Context, payload dto.TestCreateRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.baseTests.GetByID(ctx, payload.BaseTestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrBaseTestNotFound
		}
		return dto.TestResponse{}, err
	}

	test := models.Test{
		BaseTestID:  payload.BaseTestID,
		Title:       payload.Title,
		Description: payload.Description,
		VersionName: payload.VersionName,
		Status:      models.TestStatusDraft,
	}

	if err := s.tests.Create(ctx, &test); err != nil {
		return dto.TestResponse{}, err
	}

	s.logger.Info().Uint("test_id", test.ID).Uint("base_test_id", test.BaseTestID).Msg("test created")

	return dto.NewTestResponse(test), nil
}

// CreateVersion starts a new draft inside a family. With a source test
// it deep-clones the source's section tree: fresh identities are
// allocated on insert and parent references rewired, so the clone is
// fully independent of the source.
func (s *testService) CreateVersion(ctx context.Context, payload dto.VersionCreateRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.baseTests.GetByID(ctx, payload.BaseTestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrBaseTestNotFound
		}
		return dto.TestResponse{}, err
	}

	version := models.Test{
		BaseTestID:  payload.BaseTestID,
		VersionName: payload.VersionName,
		Title:       payload.VersionName,
		Status:      models.TestStatusDraft,
	}

	if payload.SourceTestID != nil {
		source, err := s.tests.GetWithTree(ctx, *payload.SourceTestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.TestResponse{}, ErrTestNotFound
			}
			return dto.TestResponse{}, err
		}

		if !source.IsPublished() {
			return dto.TestResponse{}, ErrSourceNotPublished
		}

		if source.BaseTestID != payload.BaseTestID {
			return dto.TestResponse{}, ErrVersionFamilyMismatch
		}

		version.SourceTestID = &source.ID
		version.Title = source.Title
		version.Description = source.Description
		version.Sections = make([]models.Section, 0, len(source.Sections))
		for _, section := range source.Sections {
			version.Sections = append(version.Sections, section.Clone())
		}
	}

	if err := s.tests.Create(ctx, &version); err != nil {
		return dto.TestResponse{}, err
	}

	created, err := s.tests.GetWithTree(ctx, version.ID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	s.logger.Info().
		Uint("test_id", created.ID).
		Str("version_name", created.VersionName).
		Bool("cloned", payload.SourceTestID != nil).
		Msg("version created")

	return dto.NewTestResponse(created), nil
}

// Get returns one version with its full tree. Non-admin callers only
// see the published active versions the listing exposes; drafts and
// retired versions read as not found so their existence never leaks.
func (s *testService) Get(ctx context.Context, principal Principal, id uint) (dto.TestResponse, error) {
	test, err := s.tests.GetWithTree(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, err
	}

	if !principal.IsAdmin() && (!test.IsPublished() || !test.Active) {
		return dto.TestResponse{}, ErrTestNotFound
	}

	return dto.NewTestResponse(test), nil
}

func (s *testService) List(ctx context.Context, principal Principal) ([]dto.TestResponse, error) {
	var (
		tests []models.Test
		err   error
	)

	if principal.IsAdmin() {
		tests, err = s.tests.List(ctx)
	} else {
		tests, err = s.tests.ListPublishedActive(ctx)
	}
	if err != nil {
		return nil, err
	}

	return dto.NewTestResponseSlice(tests), nil
}

func (s *testService) Update(ctx context.Context, id uint, payload dto.TestUpdateRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, err
	}

	if !test.IsDraft() {
		return dto.TestResponse{}, ErrTestPublished
	}

	if payload.Title != nil {
		test.Title = *payload.Title
	}
	if payload.Description != nil {
		test.Description = *payload.Description
	}
	if payload.VersionName != nil {
		test.VersionName = *payload.VersionName
	}

	if err := s.tests.Update(ctx, &test); err != nil {
		return dto.TestResponse{}, err
	}

	return dto.NewTestResponse(test), nil
}

func (s *testService) Delete(ctx context.Context, id uint) error {
	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTestNotFound
		}
		return err
	}

	if !test.IsDraft() {
		return ErrTestPublished
	}

	return s.tests.Delete(ctx, id)
}

// Publish freezes a draft. The transition is compare-and-set on status:
// of two concurrent publishers only one wins; the loser sees a stale
// state rejection.
func (s *testService) Publish(ctx context.Context, id uint) (dto.TestResponse, error) {
	test, err := s.tests.GetWithTree(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, err
	}

	if !test.IsDraft() {
		return dto.TestResponse{}, ErrTestPublished
	}

	hasQuestion := false
	for _, section := range test.Sections {
		if len(section.Questions) > 0 {
			hasQuestion = true
			break
		}
	}
	if len(test.Sections) == 0 || !hasQuestion {
		return dto.TestResponse{}, ErrEmptyTest
	}

	won, err := s.tests.Publish(ctx, id)
	if err != nil {
		return dto.TestResponse{}, err
	}
	if !won {
		return dto.TestResponse{}, ErrPublishConflict
	}

	test.Status = models.TestStatusPublished

	s.logger.Info().Uint("test_id", id).Msg("test published")

	return dto.NewTestResponse(test), nil
}

func (s *testService) SetActive(ctx context.Context, id uint, active bool) (dto.TestResponse, error) {
	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, err
	}

	if !test.IsPublished() {
		return dto.TestResponse{}, ErrTestNotPublished
	}

	if err := s.tests.SetActive(ctx, id, test.BaseTestID, active); err != nil {
		return dto.TestResponse{}, err
	}

	test.Active = active

	if s.catalog != nil {
		if err := s.catalog.Invalidate(ctx, test.BaseTestID); err != nil {
			s.logger.Warn().Err(err).Uint("base_test_id", test.BaseTestID).Msg("failed to invalidate catalog cache")
		}
	}

	s.logger.Info().Uint("test_id", id).Bool("active", active).Msg("test activation changed")

	return dto.NewTestResponse(test), nil
}

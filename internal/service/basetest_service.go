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

// BaseTestService manages test families, the root under which versions
// and metrics live.
type BaseTestService interface {
	Create(ctx context.Context, payload dto.BaseTestCreateRequest) (dto.BaseTestResponse, error)
	Get(ctx context.Context, id uint) (dto.BaseTestResponse, error)
	List(ctx context.Context) ([]dto.BaseTestResponse, error)
}

type baseTestService struct {
	baseTests repository.BaseTestRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBaseTestService constructs a BaseTestService instance.
func NewBaseTestService(baseTests repository.BaseTestRepository, validate *validator.Validate, logger zerolog.Logger) BaseTestService {
	return &baseTestService{
		baseTests: baseTests,
		validator: validate,
		logger:    logger.With().Str("component", "base_test_service").Logger(),
	}
}

func (s *baseTestService) Create(ctx context.Context, payload dto.BaseTestCreateRequest) (dto.BaseTestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BaseTestResponse{}, err
	}

	family := models.BaseTest{
		Code: payload.Code,
		Type: payload.Type,
	}
	if err := s.baseTests.Create(ctx, &family); err != nil {
		return dto.BaseTestResponse{}, err
	}

	s.logger.Info().Uint("base_test_id", family.ID).Str("code", family.Code).Msg("base test created")

	return dto.NewBaseTestResponse(family), nil
}

func (s *baseTestService) Get(ctx context.Context, id uint) (dto.BaseTestResponse, error) {
	family, err := s.baseTests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BaseTestResponse{}, ErrBaseTestNotFound
		}
		return dto.BaseTestResponse{}, err
	}

	return dto.NewBaseTestResponse(family), nil
}

func (s *baseTestService) List(ctx context.Context) ([]dto.BaseTestResponse, error) {
	families, err := s.baseTests.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewBaseTestResponseSlice(families), nil
}

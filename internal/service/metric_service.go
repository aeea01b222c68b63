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

// MetricService manages the metric catalog of a base test family.
type MetricService interface {
	Create(ctx context.Context, payload dto.MetricCreateRequest) (dto.MetricResponse, error)
	Get(ctx context.Context, id uint) (dto.MetricResponse, error)
	List(ctx context.Context) ([]dto.MetricResponse, error)
	ListByBaseTest(ctx context.Context, baseTestID uint) ([]dto.MetricResponse, error)
	Update(ctx context.Context, id uint, payload dto.MetricUpdateRequest) (dto.MetricResponse, error)
	Delete(ctx context.Context, id uint) error
}

type metricService struct {
	metrics   repository.MetricRepository
	baseTests repository.BaseTestRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMetricService constructs a MetricService instance.
func NewMetricService(metrics repository.MetricRepository, baseTests repository.BaseTestRepository, validate *validator.Validate, logger zerolog.Logger) MetricService {
	return &metricService{
		metrics:   metrics,
		baseTests: baseTests,
		validator: validate,
		logger:    logger.With().Str("component", "metric_service").Logger(),
	}
}

func (s *metricService) Create(ctx context.Context, payload dto.MetricCreateRequest) (dto.MetricResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MetricResponse{}, err
	}

	if _, err := s.baseTests.GetByID(ctx, payload.BaseTestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MetricResponse{}, ErrBaseTestNotFound
		}
		return dto.MetricResponse{}, err
	}

	taken, err := s.metrics.CodeExists(ctx, payload.BaseTestID, payload.Code)
	if err != nil {
		return dto.MetricResponse{}, err
	}
	if taken {
		return dto.MetricResponse{}, ErrMetricCodeTaken
	}

	metric := models.Metric{
		BaseTestID:  payload.BaseTestID,
		Code:        payload.Code,
		Label:       payload.Label,
		Description: payload.Description,
	}

	if err := s.metrics.Create(ctx, &metric); err != nil {
		return dto.MetricResponse{}, err
	}

	s.logger.Info().Uint("metric_id", metric.ID).Str("code", metric.Code).Msg("metric created")

	return dto.NewMetricResponse(metric), nil
}

func (s *metricService) Get(ctx context.Context, id uint) (dto.MetricResponse, error) {
	metric, err := s.metrics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MetricResponse{}, ErrMetricNotFound
		}
		return dto.MetricResponse{}, err
	}

	return dto.NewMetricResponse(metric), nil
}

func (s *metricService) List(ctx context.Context) ([]dto.MetricResponse, error) {
	metrics, err := s.metrics.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewMetricResponseSlice(metrics), nil
}

func (s *metricService) ListByBaseTest(ctx context.Context, baseTestID uint) ([]dto.MetricResponse, error) {
	metrics, err := s.metrics.ListByBaseTest(ctx, baseTestID)
	if err != nil {
		return nil, err
	}

	return dto.NewMetricResponseSlice(metrics), nil
}

// Update changes label and description freely. Re-coding a metric that
// a published version references is rejected: historical personality
// codes embed the old code.
func (s *metricService) Update(ctx context.Context, id uint, payload dto.MetricUpdateRequest) (dto.MetricResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MetricResponse{}, err
	}

	metric, err := s.metrics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MetricResponse{}, ErrMetricNotFound
		}
		return dto.MetricResponse{}, err
	}

	if payload.Code != nil && *payload.Code != metric.Code {
		used, err := s.metrics.UsedInPublishedTest(ctx, id)
		if err != nil {
			return dto.MetricResponse{}, err
		}
		if used {
			return dto.MetricResponse{}, ErrMetricInUse
		}

		taken, err := s.metrics.CodeExists(ctx, metric.BaseTestID, *payload.Code)
		if err != nil {
			return dto.MetricResponse{}, err
		}
		if taken {
			return dto.MetricResponse{}, ErrMetricCodeTaken
		}

		metric.Code = *payload.Code
	}

	if payload.Label != nil {
		metric.Label = *payload.Label
	}
	if payload.Description != nil {
		metric.Description = *payload.Description
	}

	if err := s.metrics.Update(ctx, &metric); err != nil {
		return dto.MetricResponse{}, err
	}

	return dto.NewMetricResponse(metric), nil
}

func (s *metricService) Delete(ctx context.Context, id uint) error {
	if _, err := s.metrics.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMetricNotFound
		}
		return err
	}

	used, err := s.metrics.UsedInPublishedTest(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrMetricInUse
	}

	return s.metrics.Delete(ctx, id)
}

package dto

import (
	"time"

	"github.com/persona-labs/persona-api/internal/models"
)

// MetricCreateRequest describes the payload for creating a metric.
type MetricCreateRequest struct {
	BaseTestID  uint   `json:"base_test_id" validate:"required,gt=0"`
	Code        string `json:"code" validate:"required,min=1,max=32"`
	Label       string `json:"label" validate:"omitempty,max=255"`
	Description string `json:"description"`
}

// MetricUpdateRequest updates mutable metric fields. Re-coding is only
// accepted while the metric is unused by published versions.
type MetricUpdateRequest struct {
	Code        *string `json:"code" validate:"omitempty,min=1,max=32"`
	Label       *string `json:"label" validate:"omitempty,max=255"`
	Description *string `json:"description"`
}

// MetricResponse is returned to API clients when viewing metrics.
type MetricResponse struct {
	ID          uint      `json:"id"`
	BaseTestID  uint      `json:"base_test_id"`
	Code        string    `json:"code"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMetricResponse converts a Metric model into a DTO.
func NewMetricResponse(model models.Metric) MetricResponse {
	return MetricResponse{
		ID:          model.ID,
		BaseTestID:  model.BaseTestID,
		Code:        model.Code,
		Label:       model.Label,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewMetricResponseSlice converts a slice of metrics.
func NewMetricResponseSlice(metrics []models.Metric) []MetricResponse {
	responses := make([]MetricResponse, 0, len(metrics))
	for _, metric := range metrics {
		responses = append(responses, NewMetricResponse(metric))
	}
	return responses
}

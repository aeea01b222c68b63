package dto

import (
	"time"

	"github.com/persona-labs/persona-api/internal/models"
)

// StudentCreateRequest registers a student consumed by attempts.
type StudentCreateRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=255"`
	Email  string `json:"email" validate:"required,email"`
	Gender string `json:"gender" validate:"required,oneof=MALE FEMALE"`
}

// StudentResponse is returned to API clients when viewing students.
type StudentResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStudentResponse converts a Student model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Gender:    model.Gender,
		CreatedAt: model.CreatedAt,
	}
}

// BaseTestCreateRequest registers a new test family.
type BaseTestCreateRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
	Type string `json:"type" validate:"required,min=1,max=64"`
}

// BaseTestResponse is returned to API clients when viewing families.
type BaseTestResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBaseTestResponse converts a BaseTest model into a DTO.
func NewBaseTestResponse(model models.BaseTest) BaseTestResponse {
	return BaseTestResponse{
		ID:        model.ID,
		Code:      model.Code,
		Type:      model.Type,
		CreatedAt: model.CreatedAt,
	}
}

// NewBaseTestResponseSlice converts a slice of families.
func NewBaseTestResponseSlice(families []models.BaseTest) []BaseTestResponse {
	responses := make([]BaseTestResponse, 0, len(families))
	for _, family := range families {
		responses = append(responses, NewBaseTestResponse(family))
	}
	return responses
}

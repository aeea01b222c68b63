package dto

import (
	"time"

	"github.com/persona-labs/persona-api/internal/models"
)

// AttemptStartRequest begins an attempt against the active version.
type AttemptStartRequest struct {
	TestID uint `json:"test_id" validate:"required,gt=0"`
}

// AnswerSubmitRequest records or replaces one answer within an attempt.
// Exactly one payload field should be set, matching the answer type.
type AnswerSubmitRequest struct {
	QuestionID    uint     `json:"question_id" validate:"required,gt=0"`
	SubQuestionID *uint    `json:"sub_question_id" validate:"omitempty,gt=0"`
	AnswerType    string   `json:"answer_type" validate:"required,oneof=BINARY SCALE OPEN"`
	BinaryValue   *bool    `json:"binary_value"`
	ScaleValue    *int     `json:"scale_value" validate:"omitempty,gte=1,lte=7"`
	OpenValues    []string `json:"open_values" validate:"omitempty,dive,max=2048"`
}

// AttemptResponse is returned when starting or viewing an attempt. The
// section tree is pre-filtered to what the student should see.
type AttemptResponse struct {
	ID              uint              `json:"id"`
	TestID          uint              `json:"test_id"`
	TestTitle       string            `json:"test_title"`
	TestDescription string            `json:"test_description"`
	Finalized       bool              `json:"finalized"`
	Sections        []SectionResponse `json:"sections"`
}

// AttemptSummaryResponse lists an attempt without its section tree.
type AttemptSummaryResponse struct {
	ID              uint           `json:"id"`
	TestID          uint           `json:"test_id"`
	StudentID       uint           `json:"student_id"`
	Finalized       bool           `json:"finalized"`
	PersonalityCode string         `json:"personality_code"`
	MetricScores    map[string]int `json:"metric_scores"`
	FinalizedAt     *time.Time     `json:"finalized_at"`
	CreatedAt       time.Time      `json:"created_at"`
}

// AnswerResponse serializes one recorded answer.
type AnswerResponse struct {
	ID            uint     `json:"id"`
	QuestionID    uint     `json:"question_id"`
	SubQuestionID *uint    `json:"sub_question_id"`
	AnswerType    string   `json:"answer_type"`
	BinaryValue   *bool    `json:"binary_value,omitempty"`
	ScaleValue    *int     `json:"scale_value,omitempty"`
	ScaleLevel    string   `json:"scale_level,omitempty"`
	OpenValues    []string `json:"open_values,omitempty"`
}

// EvaluationResponse is the computed outcome of a finalized attempt.
type EvaluationResponse struct {
	AttemptID       uint           `json:"attempt_id"`
	PersonalityCode string         `json:"personality_code"`
	MetricScores    map[string]int `json:"metric_scores"`
}

// NewAttemptSummaryResponse converts a TestAttempt model.
func NewAttemptSummaryResponse(model models.TestAttempt) AttemptSummaryResponse {
	return AttemptSummaryResponse{
		ID:              model.ID,
		TestID:          model.TestID,
		StudentID:       model.StudentID,
		Finalized:       model.Finalized,
		PersonalityCode: model.PersonalityCode,
		MetricScores:    model.MetricScores.Data(),
		FinalizedAt:     model.FinalizedAt,
		CreatedAt:       model.CreatedAt,
	}
}

// NewAttemptSummaryResponseSlice converts a slice of attempts.
func NewAttemptSummaryResponseSlice(attempts []models.TestAttempt) []AttemptSummaryResponse {
	responses := make([]AttemptSummaryResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, NewAttemptSummaryResponse(attempt))
	}
	return responses
}

// NewAnswerResponse converts an Answer model.
func NewAnswerResponse(model models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:            model.ID,
		QuestionID:    model.QuestionID,
		SubQuestionID: model.SubQuestionID,
		AnswerType:    model.AnswerType,
		BinaryValue:   model.BinaryValue,
		ScaleValue:    model.ScaleValue,
		ScaleLevel:    model.ScaleLevel(),
		OpenValues:    model.OpenValues,
	}
}

// NewAnswerResponseSlice converts a slice of answers.
func NewAnswerResponseSlice(answers []models.Answer) []AnswerResponse {
	responses := make([]AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, NewAnswerResponse(answer))
	}
	return responses
}

package dto

import (
	"time"

	"github.com/persona-labs/persona-api/internal/models"
)

// TestCreateRequest describes the payload for creating a fresh version.
type TestCreateRequest struct {
	BaseTestID  uint   `json:"base_test_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description"`
	VersionName string `json:"version_name" validate:"omitempty,max=64"`
}

// TestUpdateRequest updates title/description metadata of a draft.
type TestUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description"`
	VersionName *string `json:"version_name" validate:"omitempty,max=64"`
}

// VersionCreateRequest creates a new version inside a family, optionally
// cloning the tree of an existing version.
type VersionCreateRequest struct {
	BaseTestID   uint   `json:"base_test_id" validate:"required,gt=0"`
	SourceTestID *uint  `json:"source_test_id" validate:"omitempty,gt=0"`
	VersionName  string `json:"version_name" validate:"required,min=1,max=64"`
}

// SetActiveRequest toggles a published version's visibility to students.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SectionRequest describes the payload for creating or updating a section.
type SectionRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

// QuestionRequest describes the payload for creating or updating a question.
type QuestionRequest struct {
	QuestionText string `json:"question_text" validate:"required,min=1"`
	AnswerType   string `json:"answer_type" validate:"required,oneof=BINARY SCALE OPEN"`
	TargetGender string `json:"target_gender" validate:"omitempty,oneof=ANY MALE FEMALE"`
}

// SubQuestionRequest describes the payload for creating or updating a
// sub-question.
type SubQuestionRequest struct {
	SubQuestionText string `json:"sub_question_text" validate:"required,min=1"`
	TargetGender    string `json:"target_gender" validate:"omitempty,oneof=ANY MALE FEMALE"`
	MetricID        uint   `json:"metric_id" validate:"required,gt=0"`
}

// TestResponse is returned to API clients when viewing a version.
type TestResponse struct {
	ID           uint              `json:"id"`
	BaseTestID   uint              `json:"base_test_id"`
	SourceTestID *uint             `json:"source_test_id"`
	VersionName  string            `json:"version_name"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	Active       bool              `json:"active"`
	Sections     []SectionResponse `json:"sections"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SectionResponse serializes one section of a version tree.
type SectionResponse struct {
	ID        uint               `json:"id"`
	Title     string             `json:"title"`
	Questions []QuestionResponse `json:"questions"`
}

// QuestionResponse serializes one question and its sub-questions.
type QuestionResponse struct {
	ID           uint                  `json:"id"`
	QuestionText string                `json:"question_text"`
	AnswerType   string                `json:"answer_type"`
	TargetGender string                `json:"target_gender"`
	SubQuestions []SubQuestionResponse `json:"sub_questions"`
}

// SubQuestionResponse serializes one sub-question.
type SubQuestionResponse struct {
	ID              uint   `json:"id"`
	SubQuestionText string `json:"sub_question_text"`
	TargetGender    string `json:"target_gender"`
	MetricID        uint   `json:"metric_id"`
	MetricCode      string `json:"metric_code"`
}

// NewTestResponse converts a Test model, including any loaded tree.
func NewTestResponse(model models.Test) TestResponse {
	return TestResponse{
		ID:           model.ID,
		BaseTestID:   model.BaseTestID,
		SourceTestID: model.SourceTestID,
		VersionName:  model.VersionName,
		Title:        model.Title,
		Description:  model.Description,
		Status:       model.Status,
		Active:       model.Active,
		Sections:     NewSectionResponseSlice(model.Sections),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewTestResponseSlice converts a slice of versions.
func NewTestResponseSlice(tests []models.Test) []TestResponse {
	responses := make([]TestResponse, 0, len(tests))
	for _, test := range tests {
		responses = append(responses, NewTestResponse(test))
	}
	return responses
}

// NewSectionResponseSlice converts a section tree.
func NewSectionResponseSlice(sections []models.Section) []SectionResponse {
	responses := make([]SectionResponse, 0, len(sections))
	for _, section := range sections {
		responses = append(responses, NewSectionResponse(section))
	}
	return responses
}

// NewSectionResponse converts one section and its questions.
func NewSectionResponse(model models.Section) SectionResponse {
	questions := make([]QuestionResponse, 0, len(model.Questions))
	for _, question := range model.Questions {
		questions = append(questions, NewQuestionResponse(question))
	}

	return SectionResponse{
		ID:        model.ID,
		Title:     model.Title,
		Questions: questions,
	}
}

// NewQuestionResponse converts one question and its sub-questions.
func NewQuestionResponse(model models.Question) QuestionResponse {
	subs := make([]SubQuestionResponse, 0, len(model.SubQuestions))
	for _, sub := range model.SubQuestions {
		subs = append(subs, SubQuestionResponse{
			ID:              sub.ID,
			SubQuestionText: sub.SubQuestionText,
			TargetGender:    sub.TargetGender,
			MetricID:        sub.MetricID,
			MetricCode:      sub.Metric.Code,
		})
	}

	return QuestionResponse{
		ID:           model.ID,
		QuestionText: model.QuestionText,
		AnswerType:   model.AnswerType,
		TargetGender: model.TargetGender,
		SubQuestions: subs,
	}
}

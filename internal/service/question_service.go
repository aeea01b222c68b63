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

// QuestionBankService mutates the section/question/sub-question tree of
// draft versions. Every operation re-checks the owning version's status
// and parent ownership before writing.
type QuestionBankService interface {
	AddSection(ctx context.Context, testID uint, payload dto.SectionRequest) (dto.TestResponse, error)
	UpdateSection(ctx context.Context, testID, sectionID uint, payload dto.SectionRequest) (dto.TestResponse, error)
	DeleteSection(ctx context.Context, testID, sectionID uint) error
	AddQuestion(ctx context.Context, testID, sectionID uint, payload dto.QuestionRequest) (dto.TestResponse, error)
	UpdateQuestion(ctx context.Context, testID, questionID uint, payload dto.QuestionRequest) (dto.TestResponse, error)
	DeleteQuestion(ctx context.Context, testID, questionID uint) error
	AddSubQuestion(ctx context.Context, testID, questionID uint, payload dto.SubQuestionRequest) (dto.TestResponse, error)
	UpdateSubQuestion(ctx context.Context, testID, subQuestionID uint, payload dto.SubQuestionRequest) (dto.TestResponse, error)
	DeleteSubQuestion(ctx context.Context, testID, subQuestionID uint) error
}

type questionBankService struct {
	tests     repository.TestRepository
	sections  repository.SectionRepository
	questions repository.QuestionRepository
	metrics   repository.MetricRepository
	answers   repository.AnswerRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionBankService constructs a QuestionBankService instance.
func NewQuestionBankService(tests repository.TestRepository, sections repository.SectionRepository, questions repository.QuestionRepository, metrics repository.MetricRepository, answers repository.AnswerRepository, validate *validator.Validate, logger zerolog.Logger) QuestionBankService {
	return &questionBankService{
		tests:     tests,
		sections:  sections,
		questions: questions,
		metrics:   metrics,
		answers:   answers,
		validator: validate,
		logger:    logger.With().Str("component", "question_bank_service").Logger(),
	}
}

// draftTest loads the version and rejects anything not in DRAFT.
func (s *questionBankService) draftTest(ctx context.Context, testID uint) (models.Test, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Test{}, ErrTestNotFound
		}
		return models.Test{}, err
	}

	if !test.IsDraft() {
		return models.Test{}, ErrTestPublished
	}

	return test, nil
}

func (s *questionBankService) sectionInTest(ctx context.Context, testID, sectionID uint) (models.Section, error) {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Section{}, ErrSectionNotFound
		}
		return models.Section{}, err
	}

	if section.TestID != testID {
		return models.Section{}, ErrSectionNotInTest
	}

	return section, nil
}

func (s *questionBankService) questionInTest(ctx context.Context, testID, questionID uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}

	if _, err := s.sectionInTest(ctx, testID, question.SectionID); err != nil {
		if errors.Is(err, ErrSectionNotInTest) {
			return models.Question{}, ErrQuestionNotInTest
		}
		return models.Question{}, err
	}

	return question, nil
}

func (s *questionBankService) treeResponse(ctx context.Context, testID uint) (dto.TestResponse, error) {
	test, err := s.tests.GetWithTree(ctx, testID)
	if err != nil {
		return dto.TestResponse{}, err
	}
	return dto.NewTestResponse(test), nil
}

func (s *questionBankService) AddSection(ctx context.Context, testID uint, payload dto.SectionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.draftTest(ctx, testID); err != nil {
		return dto.TestResponse{}, err
	}

	section := models.Section{TestID: testID, Title: payload.Title}
	if err := s.sections.Create(ctx, &section); err != nil {
		return dto.TestResponse{}, err
	}

	s.logger.Info().Uint("test_id", testID).Uint("section_id", section.ID).Msg("section added")

	return s.treeResponse(ctx, testID)
}

func (s *questionBankService) UpdateSection(ctx context.Context, testID, sectionID uint, payload dto.SectionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.draftTest(ctx, testID); err != nil {
		return dto.TestResponse{}, err
	}

	section, err := s.sectionInTest(ctx, testID, sectionID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	section.Title = payload.Title
	if err := s.sections.Update(ctx, &section); err != nil {
		return dto.TestResponse{}, err
	}

	return s.treeResponse(ctx, testID)
}

// DeleteSection removes the section tree. Sections whose questions have
// recorded answers are protected: deleting them would orphan historical
// attempts.
func (s *questionBankService) DeleteSection(ctx context.Context, testID, sectionID uint) error {
	if _, err := s.draftTest(ctx, testID); err != nil {
		return err
	}

	if _, err := s.sectionInTest(ctx, testID, sectionID); err != nil {
		return err
	}

	questionIDs, err := s.sections.QuestionIDs(ctx, sectionID)
	if err != nil {
		return err
	}

	answered, err := s.answers.CountForQuestions(ctx, questionIDs)
	if err != nil {
		return err
	}
	if answered > 0 {
		return ErrSectionHasAnswers
	}

	return s.sections.Delete(ctx, sectionID)
}

func (s *questionBankService) AddQuestion(ctx context.Context, testID, sectionID uint, payload dto.QuestionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.draftTest(ctx, testID); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.sectionInTest(ctx, testID, sectionID); err != nil {
		return dto.TestResponse{}, err
	}

	question := models.Question{
		SectionID:    sectionID,
		QuestionText: payload.QuestionText,
		AnswerType:   payload.AnswerType,
		TargetGender: payload.TargetGender,
	}
	if question.TargetGender == "" {
		question.TargetGender = models.TargetGenderAny
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.TestResponse{}, err
	}

	s.logger.Info().Uint("test_id", testID).Uint("question_id", question.ID).Msg("question added")

	return s.treeResponse(ctx, testID)
}

func (s *questionBankService) UpdateQuestion(ctx context.Context, testID, questionID uint, payload dto.QuestionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.draftTest(ctx, testID); err != nil {
		return dto.TestResponse{}, err
	}

	question, err := s.questionInTest(ctx, testID, questionID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	question.QuestionText = payload.QuestionText
	question.AnswerType = payload.AnswerType
	if payload.TargetGender != "" {
		question.TargetGender = payload.TargetGender
	}

	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.TestResponse{}, err
	}

	return s.treeResponse(ctx, testID)
}

func (s *questionBankService) DeleteQuestion(ctx context.Context, testID, questionID uint) error {
	if _, err := s.draftTest(ctx, testID); err != nil {
		return err
	}

	if _, err := s.questionInTest(ctx, testID, questionID); err != nil {
		return err
	}

	answered, err := s.answers.CountForQuestions(ctx, []uint{questionID})
	if err != nil {
		return err
	}
	if answered > 0 {
		return ErrQuestionHasAnswers
	}

	return s.questions.Delete(ctx, questionID)
}

// AddSubQuestion attaches a scored leaf. The metric must belong to the
// same base test family as the owning version.
func (s *questionBankService) AddSubQuestion(ctx context.Context, testID, questionID uint, payload dto.SubQuestionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	test, err := s.draftTest(ctx, testID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	if _, err := s.questionInTest(ctx, testID, questionID); err != nil {
		return dto.TestResponse{}, err
	}

	metric, err := s.metrics.GetByID(ctx, payload.MetricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrMetricNotFound
		}
		return dto.TestResponse{}, err
	}

	if metric.BaseTestID != test.BaseTestID {
		return dto.TestResponse{}, ErrCrossFamilyMetric
	}

	sub := models.SubQuestion{
		QuestionID:      questionID,
		SubQuestionText: payload.SubQuestionText,
		TargetGender:    payload.TargetGender,
		MetricID:        payload.MetricID,
	}
	if sub.TargetGender == "" {
		sub.TargetGender = models.TargetGenderAny
	}

	if err := s.questions.CreateSubQuestion(ctx, &sub); err != nil {
		return dto.TestResponse{}, err
	}

	return s.treeResponse(ctx, testID)
}

func (s *questionBankService) UpdateSubQuestion(ctx context.Context, testID, subQuestionID uint, payload dto.SubQuestionRequest) (dto.TestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	test, err := s.draftTest(ctx, testID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	sub, err := s.questions.GetSubQuestion(ctx, subQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrSubQuestionNotFound
		}
		return dto.TestResponse{}, err
	}

	if _, err := s.questionInTest(ctx, testID, sub.QuestionID); err != nil {
		return dto.TestResponse{}, err
	}

	if payload.MetricID != sub.MetricID {
		metric, err := s.metrics.GetByID(ctx, payload.MetricID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.TestResponse{}, ErrMetricNotFound
			}
			return dto.TestResponse{}, err
		}
		if metric.BaseTestID != test.BaseTestID {
			return dto.TestResponse{}, ErrCrossFamilyMetric
		}
		sub.MetricID = payload.MetricID
	}

	sub.SubQuestionText = payload.SubQuestionText
	if payload.TargetGender != "" {
		sub.TargetGender = payload.TargetGender
	}

	if err := s.questions.UpdateSubQuestion(ctx, &sub); err != nil {
		return dto.TestResponse{}, err
	}

	return s.treeResponse(ctx, testID)
}

func (s *questionBankService) DeleteSubQuestion(ctx context.Context, testID, subQuestionID uint) error {
	if _, err := s.draftTest(ctx, testID); err != nil {
		return err
	}

	sub, err := s.questions.GetSubQuestion(ctx, subQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubQuestionNotFound
		}
		return err
	}

	if _, err := s.questionInTest(ctx, testID, sub.QuestionID); err != nil {
		return err
	}

	return s.questions.DeleteSubQuestion(ctx, subQuestionID)
}

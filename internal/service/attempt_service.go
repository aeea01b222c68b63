package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/models"
	"github.com/persona-labs/persona-api/internal/observability"
	"github.com/persona-labs/persona-api/internal/repository"
	"github.com/persona-labs/persona-api/pkg/recommend"
)

const handOffTimeout = 15 * time.Second

// Recommender hands finalized attempts to the recommendation service.
// Satisfied by recommend.Client; nil disables the hand-off.
type Recommender interface {
	Notify(ctx context.Context, payload recommend.CompletedAttempt) error
}

// AttemptService manages a student's pass through a test: starting,
// answering, and finalizing into a scored evaluation.
type AttemptService interface {
	Start(ctx context.Context, principal Principal, payload dto.AttemptStartRequest) (dto.AttemptResponse, error)
	Get(ctx context.Context, principal Principal, attemptID uint) (dto.AttemptResponse, error)
	ListByStudent(ctx context.Context, principal Principal, studentID uint) ([]dto.AttemptSummaryResponse, error)
	ListAnswers(ctx context.Context, principal Principal, attemptID uint) ([]dto.AnswerResponse, error)
	SubmitAnswer(ctx context.Context, principal Principal, attemptID uint, payload dto.AnswerSubmitRequest) (dto.AnswerResponse, error)
	Finalize(ctx context.Context, principal Principal, attemptID uint) (dto.EvaluationResponse, error)
}

type attemptService struct {
	attempts    repository.AttemptRepository
	answers     repository.AnswerRepository
	tests       repository.TestRepository
	students    repository.StudentRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	recommender Recommender
	events      *EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAttemptService constructs an AttemptService instance.
func NewAttemptService(
	attempts repository.AttemptRepository,
	answers repository.AnswerRepository,
	tests repository.TestRepository,
	students repository.StudentRepository,
	validate *validator.Validate,
	recommender Recommender,
	events *EventPublisher,
	logger zerolog.Logger,
) AttemptService {
	return &attemptService{
		attempts:    attempts,
		answers:     answers,
		tests:       tests,
		students:    students,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		recommender: recommender,
		events:      events,
		logger:      logger.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

func (s *attemptService) Start(ctx context.Context, principal Principal, payload dto.AttemptStartRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, err
	}

	student, err := s.students.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrStudentNotFound
		}
		return dto.AttemptResponse{}, err
	}

	test, err := s.tests.GetWithTree(ctx, payload.TestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrTestNotFound
		}
		return dto.AttemptResponse{}, err
	}

	if !test.IsPublished() || !test.Active {
		return dto.AttemptResponse{}, ErrTestNotAvailable
	}

	attempt := models.TestAttempt{
		StudentID: student.ID,
		TestID:    test.ID,
	}
	if err := s.attempts.Create(ctx, &attempt); err != nil {
		return dto.AttemptResponse{}, err
	}

	s.logger.Info().Uint("attempt_id", attempt.ID).Uint("student_id", student.ID).Uint("test_id", test.ID).Msg("attempt started")

	return attemptResponse(attempt, test, student.Gender), nil
}

func (s *attemptService) Get(ctx context.Context, principal Principal, attemptID uint) (dto.AttemptResponse, error) {
	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	test, err := s.tests.GetWithTree(ctx, attempt.TestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrTestNotFound
		}
		return dto.AttemptResponse{}, err
	}

	return attemptResponse(attempt, test, attempt.Student.Gender), nil
}

func (s *attemptService) ListByStudent(ctx context.Context, principal Principal, studentID uint) ([]dto.AttemptSummaryResponse, error) {
	if !principal.IsAdmin() && !principal.Owns(studentID) {
		return nil, ErrAttemptForbidden
	}

	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttemptSummaryResponseSlice(attempts), nil
}

func (s *attemptService) ListAnswers(ctx context.Context, principal Principal, attemptID uint) ([]dto.AnswerResponse, error) {
	if _, err := s.ownedAttempt(ctx, principal, attemptID); err != nil {
		return nil, err
	}

	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	return dto.NewAnswerResponseSlice(answers), nil
}

// SubmitAnswer records or replaces the answer for one (question,
// sub-question) slot. Re-submitting the same slot overwrites the
// previous value; distinct slots accumulate.
func (s *attemptService) SubmitAnswer(ctx context.Context, principal Principal, attemptID uint, payload dto.AnswerSubmitRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if attempt.Finalized {
		return dto.AnswerResponse{}, ErrAttemptFinalized
	}

	test, err := s.tests.GetWithTree(ctx, attempt.TestID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	question, found := findQuestion(test, payload.QuestionID)
	if !found {
		return dto.AnswerResponse{}, ErrQuestionNotFound
	}

	if payload.SubQuestionID != nil && !hasSubQuestion(question, *payload.SubQuestionID) {
		return dto.AnswerResponse{}, ErrSubQuestionMismatch
	}

	if payload.AnswerType != question.AnswerType {
		return dto.AnswerResponse{}, ErrAnswerTypeMismatch
	}

	switch payload.AnswerType {
	case models.AnswerTypeBinary:
		if payload.BinaryValue == nil {
			return dto.AnswerResponse{}, ErrAnswerTypeMismatch
		}
	case models.AnswerTypeScale:
		if payload.ScaleValue == nil {
			return dto.AnswerResponse{}, ErrAnswerTypeMismatch
		}
		if *payload.ScaleValue < models.ScaleMin || *payload.ScaleValue > models.ScaleMax {
			return dto.AnswerResponse{}, ErrScaleOutOfRange
		}
	case models.AnswerTypeOpen:
		if payload.OpenValues == nil {
			return dto.AnswerResponse{}, ErrAnswerTypeMismatch
		}
	}

	openValues := make([]string, 0, len(payload.OpenValues))
	for _, value := range payload.OpenValues {
		openValues = append(openValues, s.sanitizer.Sanitize(value))
	}

	answer, err := s.answers.GetByKey(ctx, attempt.ID, payload.QuestionID, payload.SubQuestionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, err
		}

		answer = models.Answer{
			AttemptID:     attempt.ID,
			QuestionID:    payload.QuestionID,
			SubQuestionID: payload.SubQuestionID,
			AnswerType:    payload.AnswerType,
			BinaryValue:   payload.BinaryValue,
			ScaleValue:    payload.ScaleValue,
			OpenValues:    openValues,
		}
		if err := s.answers.Create(ctx, &answer); err != nil {
			return dto.AnswerResponse{}, err
		}

		return dto.NewAnswerResponse(answer), nil
	}

	answer.AnswerType = payload.AnswerType
	answer.BinaryValue = payload.BinaryValue
	answer.ScaleValue = payload.ScaleValue
	answer.OpenValues = openValues
	if err := s.answers.Update(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}

	return dto.NewAnswerResponse(answer), nil
}

// Finalize evaluates the attempt and locks it. Scores are summed per
// metric over the answers that resolve one through their sub-question;
// binary answers add one when affirmed, scale answers add their raw
// value, open answers never score. Metrics untouched by any answer are
// absent from the result. The personality code joins the top three
// metric codes ranked by score, with ties broken by metric id.
func (s *attemptService) Finalize(ctx context.Context, principal Principal, attemptID uint) (dto.EvaluationResponse, error) {
	ctx, span := otel.Tracer("persona-api").Start(ctx, "attempt.finalize",
		trace.WithAttributes(attribute.Int("attempt.id", int(attemptID))))
	defer span.End()

	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	if attempt.Finalized {
		return dto.EvaluationResponse{}, ErrAttemptFinalized
	}

	test, err := s.tests.GetWithTree(ctx, attempt.TestID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	result := evaluate(attempt.Answers, metricIndex(test))

	ok, err := s.attempts.Finalize(ctx, attempt.ID, result)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if !ok {
		return dto.EvaluationResponse{}, ErrAttemptFinalized
	}

	span.SetAttributes(attribute.String("attempt.personality_code", result.PersonalityCode))
	observability.AttemptsFinalized().Inc()

	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Str("personality_code", result.PersonalityCode).
		Int("metrics_scored", len(result.MetricScores)).
		Msg("attempt finalized")

	s.handOff(attempt, result)

	return dto.EvaluationResponse{
		AttemptID:       attempt.ID,
		PersonalityCode: result.PersonalityCode,
		MetricScores:    result.MetricScores,
	}, nil
}

// handOff delivers the finalized result to downstream consumers without
// blocking the response. Failures are logged; the stored evaluation is
// already committed and is never rolled back.
func (s *attemptService) handOff(attempt models.TestAttempt, result models.EvaluationResult) {
	event := AttemptFinalizedEvent{
		AttemptID:       attempt.ID,
		StudentID:       attempt.StudentID,
		TestID:          attempt.TestID,
		PersonalityCode: result.PersonalityCode,
		MetricScores:    result.MetricScores,
		FinalizedAt:     s.now().UTC(),
	}

	payload := recommend.CompletedAttempt{
		AttemptID:       attempt.ID,
		PersonalityCode: result.PersonalityCode,
		MetricScores:    result.MetricScores,
		Student: recommend.StudentInfo{
			Name:   attempt.Student.Name,
			Email:  attempt.Student.Email,
			Gender: attempt.Student.Gender,
		},
	}

	go func() {
		if err := s.events.PublishAttemptFinalized(event); err != nil {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to publish attempt finalized event")
		}

		if s.recommender == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), handOffTimeout)
		defer cancel()

		if err := s.recommender.Notify(ctx, payload); err != nil {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("recommendation hand-off failed")
		}
	}()
}

func (s *attemptService) ownedAttempt(ctx context.Context, principal Principal, attemptID uint) (models.TestAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TestAttempt{}, ErrAttemptNotFound
		}
		return models.TestAttempt{}, err
	}

	if !principal.IsAdmin() && !principal.Owns(attempt.StudentID) {
		return models.TestAttempt{}, ErrAttemptForbidden
	}

	return attempt, nil
}

// metricIndex maps sub-question ids to their metric across the full
// test tree.
func metricIndex(test models.Test) map[uint]models.Metric {
	index := make(map[uint]models.Metric)
	for _, section := range test.Sections {
		for _, question := range section.Questions {
			for _, sub := range question.SubQuestions {
				index[sub.ID] = sub.Metric
			}
		}
	}
	return index
}

type scoredMetric struct {
	metricID uint
	code     string
	score    int
}

func evaluate(answers []models.Answer, metrics map[uint]models.Metric) models.EvaluationResult {
	scores := make(map[string]int)
	ids := make(map[string]uint)
	for _, answer := range answers {
		// Open answers never score, even when their sub-question
		// carries a metric.
		if answer.AnswerType == models.AnswerTypeOpen || answer.SubQuestionID == nil {
			continue
		}
		metric, ok := metrics[*answer.SubQuestionID]
		if !ok {
			continue
		}
		scores[metric.Code] += answer.Contribution()
		ids[metric.Code] = metric.ID
	}

	ranked := make([]scoredMetric, 0, len(scores))
	for code, score := range scores {
		ranked = append(ranked, scoredMetric{metricID: ids[code], code: code, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].metricID < ranked[j].metricID
	})

	codes := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		codes = append(codes, entry.code)
	}

	return models.EvaluationResult{
		MetricScores:    scores,
		PersonalityCode: models.PersonalityCode(codes),
	}
}

// attemptResponse shapes the section tree a student sees: questions and
// sub-questions targeting another gender are filtered out.
func attemptResponse(attempt models.TestAttempt, test models.Test, gender string) dto.AttemptResponse {
	filtered := make([]models.Section, 0, len(test.Sections))
	for _, section := range test.Sections {
		questions := make([]models.Question, 0, len(section.Questions))
		for _, question := range section.Questions {
			if !question.VisibleTo(gender) {
				continue
			}
			subs := make([]models.SubQuestion, 0, len(question.SubQuestions))
			for _, sub := range question.SubQuestions {
				if sub.VisibleTo(gender) {
					subs = append(subs, sub)
				}
			}
			question.SubQuestions = subs
			questions = append(questions, question)
		}
		section.Questions = questions
		filtered = append(filtered, section)
	}

	return dto.AttemptResponse{
		ID:              attempt.ID,
		TestID:          test.ID,
		TestTitle:       test.Title,
		TestDescription: test.Description,
		Finalized:       attempt.Finalized,
		Sections:        dto.NewSectionResponseSlice(filtered),
	}
}

func findQuestion(test models.Test, questionID uint) (models.Question, bool) {
	for _, section := range test.Sections {
		for _, question := range section.Questions {
			if question.ID == questionID {
				return question, true
			}
		}
	}
	return models.Question{}, false
}

func hasSubQuestion(question models.Question, subQuestionID uint) bool {
	for _, sub := range question.SubQuestions {
		if sub.ID == subQuestionID {
			return true
		}
	}
	return false
}

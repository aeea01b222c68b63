package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// AnswerRepository defines persistence operations for recorded answers.
type AnswerRepository interface {
	GetByKey(ctx context.Context, attemptID, questionID uint, subQuestionID *uint) (models.Answer, error)
	ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error)
	Create(ctx context.Context, answer *models.Answer) error
	Update(ctx context.Context, answer *models.Answer) error
	CountForQuestions(ctx context.Context, questionIDs []uint) (int64, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates a GORM-backed repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) GetByKey(ctx context.Context, attemptID, questionID uint, subQuestionID *uint) (models.Answer, error) {
	query := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID)

	if subQuestionID != nil {
		query = query.Where("sub_question_id = ?", *subQuestionID)
	} else {
		query = query.Where("sub_question_id IS NULL")
	}

	var answer models.Answer
	if err := query.First(&answer).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}

func (r *answerRepository) CountForQuestions(ctx context.Context, questionIDs []uint) (int64, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("question_id IN ?", questionIDs).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

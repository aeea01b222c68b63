package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// QuestionRepository defines persistence operations for questions and
// their sub-questions.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	GetSubQuestion(ctx context.Context, id uint) (models.SubQuestion, error)
	CreateSubQuestion(ctx context.Context, sub *models.SubQuestion) error
	UpdateSubQuestion(ctx context.Context, sub *models.SubQuestion) error
	DeleteSubQuestion(ctx context.Context, id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates a GORM-backed repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Preload("SubQuestions", func(db *gorm.DB) *gorm.DB { return db.Order("sub_questions.id ASC") }).
		Preload("SubQuestions.Metric").
		First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Omit("SubQuestions").Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select("SubQuestions").Delete(&models.Question{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) GetSubQuestion(ctx context.Context, id uint) (models.SubQuestion, error) {
	var sub models.SubQuestion
	if err := r.db.WithContext(ctx).Preload("Metric").First(&sub, id).Error; err != nil {
		return models.SubQuestion{}, err
	}

	return sub, nil
}

func (r *questionRepository) CreateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *questionRepository) UpdateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	return r.db.WithContext(ctx).Omit("Metric").Save(sub).Error
}

func (r *questionRepository) DeleteSubQuestion(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SubQuestion{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

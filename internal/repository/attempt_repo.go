package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// AttemptRepository defines persistence operations for test attempts.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.TestAttempt, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.TestAttempt, error)
	Create(ctx context.Context, attempt *models.TestAttempt) error
	Finalize(ctx context.Context, id uint, result models.EvaluationResult) (bool, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates a GORM-backed repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.TestAttempt{}).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("answers.id ASC") }).
		Preload("Student")
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := r.baseQuery(ctx).First(&attempt, id).Error; err != nil {
		return models.TestAttempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.TestAttempt, error) {
	var attempts []models.TestAttempt
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.TestAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// Finalize writes the evaluation result and the finalized flag in one
// conditional UPDATE keyed on finalized=false. Zero rows affected means
// a concurrent finalization already won; the stored result is left
// untouched either way.
func (r *attemptRepository) Finalize(ctx context.Context, id uint, result models.EvaluationResult) (bool, error) {
	now := time.Now().UTC()
	update := r.db.WithContext(ctx).Model(&models.TestAttempt{}).
		Where("id = ? AND finalized = ?", id, false).
		Updates(map[string]interface{}{
			"finalized":        true,
			"personality_code": result.PersonalityCode,
			"metric_scores":    datatypes.NewJSONType(result.MetricScores),
			"finalized_at":     now,
		})
	if update.Error != nil {
		return false, update.Error
	}

	return update.RowsAffected > 0, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// MetricRepository defines persistence operations for the metric catalog.
type MetricRepository interface {
	List(ctx context.Context) ([]models.Metric, error)
	ListByBaseTest(ctx context.Context, baseTestID uint) ([]models.Metric, error)
	GetByID(ctx context.Context, id uint) (models.Metric, error)
	CodeExists(ctx context.Context, baseTestID uint, code string) (bool, error)
	Create(ctx context.Context, metric *models.Metric) error
	Update(ctx context.Context, metric *models.Metric) error
	Delete(ctx context.Context, id uint) error
	UsedInPublishedTest(ctx context.Context, metricID uint) (bool, error)
}

type metricRepository struct {
	db *gorm.DB
}

// NewMetricRepository instantiates a GORM-backed repository.
func NewMetricRepository(db *gorm.DB) MetricRepository {
	return &metricRepository{db: db}
}

func (r *metricRepository) List(ctx context.Context) ([]models.Metric, error) {
	var metrics []models.Metric
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&metrics).Error; err != nil {
		return nil, err
	}

	return metrics, nil
}

func (r *metricRepository) ListByBaseTest(ctx context.Context, baseTestID uint) ([]models.Metric, error) {
	var metrics []models.Metric
	if err := r.db.WithContext(ctx).
		Where("base_test_id = ?", baseTestID).
		Order("id ASC").
		Find(&metrics).Error; err != nil {
		return nil, err
	}

	return metrics, nil
}

func (r *metricRepository) GetByID(ctx context.Context, id uint) (models.Metric, error) {
	var metric models.Metric
	if err := r.db.WithContext(ctx).First(&metric, id).Error; err != nil {
		return models.Metric{}, err
	}

	return metric, nil
}

func (r *metricRepository) CodeExists(ctx context.Context, baseTestID uint, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Metric{}).
		Where("base_test_id = ? AND code = ?", baseTestID, code).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *metricRepository) Create(ctx context.Context, metric *models.Metric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

func (r *metricRepository) Update(ctx context.Context, metric *models.Metric) error {
	return r.db.WithContext(ctx).Save(metric).Error
}

func (r *metricRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Metric{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UsedInPublishedTest reports whether any sub-question of a published
// test version references the metric. Such metrics are frozen: deleting
// or re-coding them would corrupt historical attempt results.
func (r *metricRepository) UsedInPublishedTest(ctx context.Context, metricID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SubQuestion{}).
		Joins("JOIN questions ON questions.id = sub_questions.question_id").
		Joins("JOIN sections ON sections.id = questions.section_id").
		Joins("JOIN tests ON tests.id = sections.test_id").
		Where("sub_questions.metric_id = ?", metricID).
		Where("tests.status = ?", models.TestStatusPublished).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

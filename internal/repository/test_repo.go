package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// TestRepository defines persistence operations for test versions.
type TestRepository interface {
	List(ctx context.Context) ([]models.Test, error)
	ListPublishedActive(ctx context.Context) ([]models.Test, error)
	GetByID(ctx context.Context, id uint) (models.Test, error)
	GetWithTree(ctx context.Context, id uint) (models.Test, error)
	GetActiveByBaseTest(ctx context.Context, baseTestID uint) (models.Test, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error
	Publish(ctx context.Context, id uint) (bool, error)
	SetActive(ctx context.Context, id, baseTestID uint, active bool) error
}

type testRepository struct {
	db *gorm.DB
}

// NewTestRepository instantiates a GORM-backed repository.
func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) treeQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sections.id ASC") }).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB { return db.Order("questions.id ASC") }).
		Preload("Sections.Questions.SubQuestions", func(db *gorm.DB) *gorm.DB { return db.Order("sub_questions.id ASC") }).
		Preload("Sections.Questions.SubQuestions.Metric")
}

func (r *testRepository) List(ctx context.Context) ([]models.Test, error) {
	var tests []models.Test
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tests).Error; err != nil {
		return nil, err
	}

	return tests, nil
}

func (r *testRepository) ListPublishedActive(ctx context.Context) ([]models.Test, error) {
	var tests []models.Test
	if err := r.db.WithContext(ctx).
		Where("status = ? AND active = ?", models.TestStatusPublished, true).
		Order("id ASC").
		Find(&tests).Error; err != nil {
		return nil, err
	}

	return tests, nil
}

func (r *testRepository) GetByID(ctx context.Context, id uint) (models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return models.Test{}, err
	}

	return test, nil
}

func (r *testRepository) GetWithTree(ctx context.Context, id uint) (models.Test, error) {
	var test models.Test
	if err := r.treeQuery(ctx).First(&test, id).Error; err != nil {
		return models.Test{}, err
	}

	return test, nil
}

func (r *testRepository) GetActiveByBaseTest(ctx context.Context, baseTestID uint) (models.Test, error) {
	var test models.Test
	if err := r.treeQuery(ctx).
		Where("base_test_id = ? AND status = ? AND active = ?", baseTestID, models.TestStatusPublished, true).
		First(&test).Error; err != nil {
		return models.Test{}, err
	}

	return test, nil
}

func (r *testRepository) Create(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *testRepository) Update(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Save(test).Error
}

func (r *testRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select("Sections").Delete(&models.Test{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Publish flips DRAFT to PUBLISHED with a compare-and-set on status.
// The false return means the version was not in DRAFT at write time, so
// a concurrent publisher (or an earlier one) already won.
func (r *testRepository) Publish(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Test{}).
		Where("id = ? AND status = ?", id, models.TestStatusDraft).
		Update("status", models.TestStatusPublished)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// SetActive toggles student visibility. Activation deactivates every
// sibling version of the family in the same transaction so a single
// store never holds two active versions of one base test.
func (r *testRepository) SetActive(ctx context.Context, id, baseTestID uint, active bool) error {
	if !active {
		return r.db.WithContext(ctx).Model(&models.Test{}).
			Where("id = ?", id).
			Update("active", false).Error
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Test{}).
			Where("base_test_id = ? AND id <> ?", baseTestID, id).
			Update("active", false).Error; err != nil {
			return err
		}

		return tx.Model(&models.Test{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}

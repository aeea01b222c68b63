package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// BaseTestRepository defines persistence operations for test families.
type BaseTestRepository interface {
	List(ctx context.Context) ([]models.BaseTest, error)
	GetByID(ctx context.Context, id uint) (models.BaseTest, error)
	Create(ctx context.Context, baseTest *models.BaseTest) error
}

type baseTestRepository struct {
	db *gorm.DB
}

// NewBaseTestRepository instantiates a GORM-backed repository.
func NewBaseTestRepository(db *gorm.DB) BaseTestRepository {
	return &baseTestRepository{db: db}
}

func (r *baseTestRepository) List(ctx context.Context) ([]models.BaseTest, error) {
	var families []models.BaseTest
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&families).Error; err != nil {
		return nil, err
	}

	return families, nil
}

func (r *baseTestRepository) GetByID(ctx context.Context, id uint) (models.BaseTest, error) {
	var baseTest models.BaseTest
	if err := r.db.WithContext(ctx).First(&baseTest, id).Error; err != nil {
		return models.BaseTest{}, err
	}

	return baseTest, nil
}

func (r *baseTestRepository) Create(ctx context.Context, baseTest *models.BaseTest) error {
	return r.db.WithContext(ctx).Create(baseTest).Error
}

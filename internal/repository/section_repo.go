package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// SectionRepository defines persistence operations for sections.
type SectionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id uint) error
	QuestionIDs(ctx context.Context, sectionID uint) ([]uint, error)
}

type sectionRepository struct {
	db *gorm.DB
}

// NewSectionRepository instantiates a GORM-backed repository.
func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) GetByID(ctx context.Context, id uint) (models.Section, error) {
	var section models.Section
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("questions.id ASC") }).
		Preload("Questions.SubQuestions").
		First(&section, id).Error; err != nil {
		return models.Section{}, err
	}

	return section, nil
}

func (r *sectionRepository) Create(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *sectionRepository) Update(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Omit("Questions").Save(section).Error
}

func (r *sectionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select("Questions").Delete(&models.Section{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sectionRepository) QuestionIDs(ctx context.Context, sectionID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("section_id = ?", sectionID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

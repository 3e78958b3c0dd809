package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/models"
)

// TemplateRepository defines persistence operations for exam templates.
type TemplateRepository interface {
	List(ctx context.Context) ([]models.ExamTemplate, error)
	GetByID(ctx context.Context, id uint) (models.ExamTemplate, error)
	Create(ctx context.Context, template *models.ExamTemplate) error
	Update(ctx context.Context, template *models.ExamTemplate) error
	ReplaceQuestions(ctx context.Context, templateID uint, questions []models.Question) error
	Delete(ctx context.Context, id uint) error
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository instantiates a GORM-backed repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExamTemplate{}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("CreatedBy")
}

func (r *templateRepository) List(ctx context.Context) ([]models.ExamTemplate, error) {
	var templates []models.ExamTemplate
	if err := r.baseQuery(ctx).Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uint) (models.ExamTemplate, error) {
	var template models.ExamTemplate
	if err := r.baseQuery(ctx).First(&template, id).Error; err != nil {
		return models.ExamTemplate{}, err
	}

	return template, nil
}

func (r *templateRepository) Create(ctx context.Context, template *models.ExamTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepository) Update(ctx context.Context, template *models.ExamTemplate) error {
	return r.db.WithContext(ctx).
		Omit("Questions", "CreatedBy").
		Save(template).Error
}

// ReplaceQuestions swaps the template's question list wholesale. Submitted
// exams are unaffected: they carry their own snapshots.
func (r *templateRepository) ReplaceQuestions(ctx context.Context, templateID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		if len(questions) == 0 {
			return nil
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].TemplateID = templateID
			questions[i].Position = i
		}

		return tx.Create(&questions).Error
	})
}

func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.ExamTemplate{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Where("template_id = ?", id).Delete(&models.Question{}).Error
	})
}

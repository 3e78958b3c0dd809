package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/models"
)

// ExamRepository defines persistence operations for exam submissions.
type ExamRepository interface {
	ListByStudent(ctx context.Context, studentID uint) ([]models.Exam, error)
	ListAll(ctx context.Context) ([]models.Exam, error)
	ListEvaluatedByStudent(ctx context.Context, studentID uint) ([]models.Exam, error)
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	UpdateAnswer(ctx context.Context, answer *models.ExamAnswer) error
	CreateAnswers(ctx context.Context, answers []models.ExamAnswer) error
	ReplaceFeedback(ctx context.Context, examID uint, feedback []models.ExamFeedback) error
	Delete(ctx context.Context, id uint) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates a GORM-backed repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Exam{}).
		Preload("Responses").
		Preload("Answers").
		Preload("Feedback").
		Preload("Student").
		Preload("Template").
		Preload("Template.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *examRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) ListAll(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.baseQuery(ctx).Order("submitted_at DESC").Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) ListEvaluatedByStudent(ctx context.Context, studentID uint) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("status = ?", models.ExamStatusEvaluated).
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.baseQuery(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).
		Omit("Student", "Template").
		Create(exam).Error
}

// Update persists the exam's own columns. Child rows are managed through
// the dedicated answer and feedback methods.
func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).
		Omit("Responses", "Answers", "Feedback", "Student", "Template").
		Save(exam).Error
}

func (r *examRepository) UpdateAnswer(ctx context.Context, answer *models.ExamAnswer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}

func (r *examRepository) CreateAnswers(ctx context.Context, answers []models.ExamAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&answers).Error
}

func (r *examRepository) ReplaceFeedback(ctx context.Context, examID uint, feedback []models.ExamFeedback) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamFeedback{}).Error; err != nil {
			return err
		}

		if len(feedback) == 0 {
			return nil
		}

		for i := range feedback {
			feedback[i].ID = 0
			feedback[i].ExamID = examID
		}

		return tx.Create(&feedback).Error
	})
}

// Delete removes the exam record together with its child rows. Callers are
// expected to have dealt with the referenced audio blobs first.
func (r *examRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Exam{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("exam_id = ?", id).Delete(&models.LegacyResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamAnswer{}).Error; err != nil {
			return err
		}

		return tx.Where("exam_id = ?", id).Delete(&models.ExamFeedback{}).Error
	})
}

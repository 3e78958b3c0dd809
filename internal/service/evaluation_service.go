package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/observability"
	"github.com/nutq-platform/nutq-api/internal/repository"
)

// ErrUserNotFound indicates a user account could not be found.
var ErrUserNotFound = errors.New("user not found")

// EvaluationService applies administrator verdicts to submitted exams and
// maintains the student's derived average score.
type EvaluationService interface {
	Evaluate(ctx context.Context, examID uint, payload dto.EvaluateExamRequest) (dto.ExamResponse, error)
	RecomputeAverage(ctx context.Context, studentID uint) (float64, error)
}

type evaluationService struct {
	exams     repository.ExamRepository
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    *EventPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEvaluationService constructs an EvaluationService instance.
func NewEvaluationService(exams repository.ExamRepository, users repository.UserRepository, validate *validator.Validate, events *EventPublisher, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		exams:     exams,
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    events,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/nutq-platform/nutq-api/internal/service/evaluation"),
		now:       time.Now,
	}
}

// Evaluate overwrites the exam's verdict unconditionally: re-evaluation is
// idempotent by overwrite, not additive. Answers whose id appears in the
// payload mapping are re-scored in place; the rest are left untouched.
func (s *evaluationService) Evaluate(ctx context.Context, examID uint, payload dto.EvaluateExamRequest) (dto.ExamResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam.evaluate", trace.WithAttributes(
		attribute.Int64("exam.id", int64(examID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	evaluatedAt := s.now()
	exam.TotalScore = payload.TotalScore
	exam.Status = models.ExamStatusEvaluated
	exam.EvaluatedAt = &evaluatedAt

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	feedback := make([]models.ExamFeedback, 0, len(payload.Feedback))
	for _, entry := range payload.Feedback {
		feedback = append(feedback, models.ExamFeedback{
			Part:     entry.Part,
			Score:    entry.Score,
			Feedback: s.sanitize(entry.Feedback),
		})
	}

	if err := s.exams.ReplaceFeedback(ctx, exam.ID, feedback); err != nil {
		return dto.ExamResponse{}, err
	}

	if len(payload.AnswerFeedbacks) > 0 {
		for i := range exam.Answers {
			entry, ok := payload.AnswerFeedbacks[exam.Answers[i].ID]
			if !ok {
				continue
			}

			exam.Answers[i].Score = entry.Score
			exam.Answers[i].Feedback = s.sanitize(entry.Feedback)
			if err := s.exams.UpdateAnswer(ctx, &exam.Answers[i]); err != nil {
				return dto.ExamResponse{}, err
			}
		}
	}

	average, err := s.RecomputeAverage(ctx, exam.StudentID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	observability.ExamEvaluations().Inc()
	s.events.Publish(SubjectExamEvaluated, ExamEvent{
		ExamID:     exam.ID,
		StudentID:  exam.StudentID,
		TemplateID: exam.TemplateID,
		Status:     exam.Status,
	})

	updated, err := s.exams.GetByID(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().
		Uint("exam_id", updated.ID).
		Float64("total_score", updated.TotalScore).
		Float64("average_score", average).
		Msg("exam evaluated")

	span.SetAttributes(attribute.Float64("exam.total_score", updated.TotalScore))

	return dto.NewExamResponse(updated), nil
}

// RecomputeAverage derives the student's average score from a full scan of
// their evaluated exams and persists the result onto the user record. Exam
// volume per student is small and bounded, so correctness wins over an
// incremental update. Concurrent evaluations race last-writer-wins.
func (s *evaluationService) RecomputeAverage(ctx context.Context, studentID uint) (float64, error) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	evaluated, err := s.exams.ListEvaluatedByStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}

	var average float64
	if len(evaluated) > 0 {
		var total float64
		for _, exam := range evaluated {
			total += exam.TotalScore
		}
		average = total / float64(len(evaluated))
	}

	user.AverageScore = average
	if err := s.users.Update(ctx, &user); err != nil {
		return 0, err
	}

	return average, nil
}

func (s *evaluationService) sanitize(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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

var (
	// ErrExamNotFound indicates an exam submission could not be found.
	ErrExamNotFound = errors.New("exam not found")
	// ErrInvalidAudioData indicates a response payload is not a decodable audio blob.
	ErrInvalidAudioData = errors.New("invalid audio data")
	// ErrAudioWriteFailed indicates the blob store rejected an audio upload.
	ErrAudioWriteFailed = errors.New("failed to store audio recording")
	// ErrNotExamOwner indicates the caller may not access someone else's exam.
	ErrNotExamOwner = errors.New("not authorized to access this exam")
)

const base64Marker = ";base64,"

// ExamService orchestrates the submission lifecycle: ingestion, reads with
// lazy legacy-format backfill, and cascading deletion.
type ExamService interface {
	Submit(ctx context.Context, studentID uint, payload dto.SubmitExamRequest) (dto.ExamResponse, error)
	Get(ctx context.Context, examID, callerID uint, callerRole string) (dto.ExamResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.ExamResponse, error)
	ListAll(ctx context.Context) ([]dto.ExamResponse, error)
	Delete(ctx context.Context, examID uint) error
}

type examService struct {
	exams     repository.ExamRepository
	templates repository.TemplateRepository
	users     repository.UserRepository
	validator *validator.Validate
	storage   AudioStorage
	events    *EventPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewExamService constructs an ExamService instance.
func NewExamService(exams repository.ExamRepository, templates repository.TemplateRepository, users repository.UserRepository, validate *validator.Validate, storage AudioStorage, events *EventPublisher, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     exams,
		templates: templates,
		users:     users,
		validator: validate,
		storage:   storage,
		events:    events,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		tracer:    otel.Tracer("github.com/nutq-platform/nutq-api/internal/service/exam"),
		now:       time.Now,
	}
}

type resolvedResponse struct {
	question models.Question
	audio    []byte
}

// Submit validates every recording, persists the audio blobs one by one and
// writes the exam record in both answer representations. Blob writes are
// at-least-once: a failure partway leaves earlier uploads in place.
func (s *examService) Submit(ctx context.Context, studentID uint, payload dto.SubmitExamRequest) (dto.ExamResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam.submit", trace.WithAttributes(
		attribute.Int64("exam.student_id", int64(studentID)),
		attribute.Int64("exam.template_id", int64(payload.ExamTemplateID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	template, err := s.templates.GetByID(ctx, payload.ExamTemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrTemplateNotFound
		}
		return dto.ExamResponse{}, err
	}

	// Resolve and decode everything before the first blob write, so a
	// malformed payload rejects the submission without side effects.
	resolved := make([]resolvedResponse, 0, len(payload.Responses))
	for _, response := range payload.Responses {
		question := template.QuestionByID(response.QuestionID)
		if question == nil {
			s.logger.Warn().
				Uint("question_id", response.QuestionID).
				Uint("template_id", template.ID).
				Msg("response references unknown question, skipping")
			continue
		}

		audio, err := decodeAudioPayload(response.AudioBlob)
		if err != nil {
			return dto.ExamResponse{}, err
		}

		resolved = append(resolved, resolvedResponse{question: *question, audio: audio})
	}

	exam := models.Exam{
		StudentID:   studentID,
		TemplateID:  template.ID,
		Status:      models.ExamStatusSubmitted,
		SubmittedAt: s.now(),
	}

	for _, item := range resolved {
		name := uuid.NewString() + audioExtension(item.audio)

		locator, err := s.storage.Upload(ctx, name, bytes.NewReader(item.audio))
		if err != nil {
			span.RecordError(err)
			return dto.ExamResponse{}, fmt.Errorf("%w: %v", ErrAudioWriteFailed, err)
		}

		exam.Responses = append(exam.Responses, models.LegacyResponse{
			QuestionID: item.question.ID,
			AudioURL:   locator,
		})

		answer := models.ExamAnswer{
			QuestionID: item.question.ID,
			AudioURL:   locator,
		}
		answer.SetSnapshot(models.SnapshotOf(item.question))
		exam.Answers = append(exam.Answers, answer)
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.appendExamHistory(ctx, studentID, exam.ID)

	observability.ExamSubmissions().Inc()
	s.events.Publish(SubjectExamSubmitted, ExamEvent{
		ExamID:     exam.ID,
		StudentID:  studentID,
		TemplateID: template.ID,
		Status:     exam.Status,
	})

	created, err := s.exams.GetByID(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().
		Uint("exam_id", created.ID).
		Uint("student_id", studentID).
		Int("answers", len(created.Answers)).
		Msg("exam submitted")

	return dto.NewExamResponse(created), nil
}

// Get returns one exam, restricted to its owner or an administrator. Records
// predating the answer-snapshot format are backfilled on read.
func (s *examService) Get(ctx context.Context, examID, callerID uint, callerRole string) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	if exam.StudentID != callerID && callerRole != models.RoleAdmin {
		return dto.ExamResponse{}, ErrNotExamOwner
	}

	exam = s.backfillAnswers(ctx, exam)

	return dto.NewExamResponse(exam), nil
}

func (s *examService) ListForStudent(ctx context.Context, studentID uint) ([]dto.ExamResponse, error) {
	exams, err := s.exams.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewExamResponseSlice(exams), nil
}

func (s *examService) ListAll(ctx context.Context) ([]dto.ExamResponse, error) {
	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewExamResponseSlice(exams), nil
}

// Delete removes the exam record after a best-effort sweep of every audio
// blob referenced by either answer representation. Blob deletion failures
// are logged and do not block record deletion: an orphaned blob is an
// acceptable failure mode, a dangling locator is not, so records go last.
func (s *examService) Delete(ctx context.Context, examID uint) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	for _, locator := range exam.AudioLocators() {
		if err := s.storage.Delete(ctx, locator); err != nil {
			s.logger.Warn().Err(err).Str("locator", locator).Uint("exam_id", examID).Msg("failed to delete audio blob")
		}
	}

	if err := s.exams.Delete(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	s.logger.Info().Uint("exam_id", examID).Msg("exam deleted")

	return nil
}

// backfillAnswers reconstructs the current answer format from legacy
// responses plus template data, persisting the result. Responses whose
// question no longer resolves are skipped; the record keeps an incomplete
// answers view for those items.
func (s *examService) backfillAnswers(ctx context.Context, exam models.Exam) models.Exam {
	if len(exam.Answers) > 0 || len(exam.Responses) == 0 || exam.Template.ID == 0 {
		return exam
	}

	var answers []models.ExamAnswer
	for _, response := range exam.Responses {
		question := exam.Template.QuestionByID(response.QuestionID)
		if question == nil {
			s.logger.Warn().
				Uint("exam_id", exam.ID).
				Uint("question_id", response.QuestionID).
				Msg("cannot backfill answer, question no longer resolvable")
			continue
		}

		answer := models.ExamAnswer{
			ExamID:     exam.ID,
			QuestionID: question.ID,
			AudioURL:   response.AudioURL,
		}
		answer.SetSnapshot(models.SnapshotOf(*question))
		answers = append(answers, answer)
	}

	if len(answers) == 0 {
		return exam
	}

	if err := s.exams.CreateAnswers(ctx, answers); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", exam.ID).Msg("failed to persist backfilled answers")
	} else {
		s.logger.Info().Uint("exam_id", exam.ID).Int("answers", len(answers)).Msg("backfilled answers from legacy responses")
	}

	exam.Answers = answers

	return exam
}

// appendExamHistory adds the exam to the student's denormalized history
// list. The exam record itself is the source of truth, so failures here are
// logged and swallowed.
func (s *examService) appendExamHistory(ctx context.Context, studentID, examID uint) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("could not load student for exam-history append")
		return
	}

	user.AppendExamID(examID)
	if err := s.users.Update(ctx, &user); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("could not update student exam history")
	}
}

func decodeAudioPayload(blob string) ([]byte, error) {
	idx := strings.Index(blob, base64Marker)
	if idx < 0 {
		return nil, ErrInvalidAudioData
	}

	data, err := base64.StdEncoding.DecodeString(blob[idx+len(base64Marker):])
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidAudioData
	}

	return data, nil
}

func audioExtension(data []byte) string {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		return ".webm"
	}

	return ext
}

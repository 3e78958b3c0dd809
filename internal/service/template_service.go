package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/repository"
)

// ErrTemplateNotFound indicates an exam template could not be found.
var ErrTemplateNotFound = errors.New("exam template not found")

// TemplateService manages the lifecycle of exam templates.
type TemplateService interface {
	List(ctx context.Context) ([]dto.TemplateResponse, error)
	Get(ctx context.Context, id uint) (dto.TemplateResponse, error)
	Create(ctx context.Context, creatorID uint, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error)
	Update(ctx context.Context, id uint, payload dto.TemplateUpdateRequest) (dto.TemplateResponse, error)
	Delete(ctx context.Context, id uint) error
}

type templateService struct {
	templates repository.TemplateRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTemplateService constructs a TemplateService instance.
func NewTemplateService(templates repository.TemplateRepository, validate *validator.Validate, logger zerolog.Logger) TemplateService {
	return &templateService{
		templates: templates,
		validator: validate,
		logger:    logger.With().Str("component", "template_service").Logger(),
	}
}

func (s *templateService) List(ctx context.Context) ([]dto.TemplateResponse, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewTemplateResponseSlice(templates), nil
}

func (s *templateService) Get(ctx context.Context, id uint) (dto.TemplateResponse, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	return dto.NewTemplateResponse(template), nil
}

func (s *templateService) Create(ctx context.Context, creatorID uint, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}

	template := models.ExamTemplate{
		Title:       payload.Title,
		Description: payload.Description,
		CreatedByID: creatorID,
		Questions:   buildQuestions(payload.Questions),
	}

	if err := s.templates.Create(ctx, &template); err != nil {
		return dto.TemplateResponse{}, err
	}

	created, err := s.templates.GetByID(ctx, template.ID)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	s.logger.Info().Uint("template_id", created.ID).Int("questions", len(created.Questions)).Msg("exam template created")

	return dto.NewTemplateResponse(created), nil
}

func (s *templateService) Update(ctx context.Context, id uint, payload dto.TemplateUpdateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}

	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	if payload.Title != nil {
		template.Title = *payload.Title
	}
	if payload.Description != nil {
		template.Description = *payload.Description
	}

	if err := s.templates.Update(ctx, &template); err != nil {
		return dto.TemplateResponse{}, err
	}

	if payload.Questions != nil {
		if err := s.templates.ReplaceQuestions(ctx, template.ID, buildQuestions(*payload.Questions)); err != nil {
			return dto.TemplateResponse{}, err
		}
	}

	updated, err := s.templates.GetByID(ctx, template.ID)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	s.logger.Info().Uint("template_id", updated.ID).Msg("exam template updated")

	return dto.NewTemplateResponse(updated), nil
}

// Delete removes the template unconditionally. Submitted exams keep their
// own question snapshots, so no referential guard is applied.
func (s *templateService) Delete(ctx context.Context, id uint) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}

	s.logger.Info().Uint("template_id", id).Msg("exam template deleted")

	return nil
}

func buildQuestions(payloads []dto.QuestionPayload) []models.Question {
	questions := make([]models.Question, 0, len(payloads))
	for i, payload := range payloads {
		question := models.Question{
			Position: i,
			Text:     payload.Text,
			Type:     payload.Type,
			Part:     payload.Part,
			ImageURL: payload.ImageURL,
		}
		if question.Type == "" {
			question.Type = models.QuestionTypeText
		}
		question.SetTable(payload.TableData)
		questions = append(questions, question)
	}

	return questions
}

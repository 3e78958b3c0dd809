package dto

import (
	"time"

	"github.com/nutq-platform/nutq-api/internal/models"
)

// QuestionPayload describes a question supplied when creating or updating a template.
type QuestionPayload struct {
	Text      string            `json:"text" validate:"required"`
	Type      string            `json:"type" validate:"omitempty,oneof=text image table"`
	Part      int               `json:"part" validate:"required,oneof=1 2 3"`
	ImageURL  string            `json:"image_url" validate:"omitempty,url"`
	TableData *models.TableData `json:"table_data"`
}

// TemplateCreateRequest is the payload for creating an exam template.
type TemplateCreateRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Questions   []QuestionPayload `json:"questions" validate:"omitempty,dive"`
}

// TemplateUpdateRequest applies a non-destructive partial update: only
// supplied fields are replaced. Questions, when present, replace the
// template's question list wholesale.
type TemplateUpdateRequest struct {
	Title       *string            `json:"title" validate:"omitempty,min=1"`
	Description *string            `json:"description"`
	Questions   *[]QuestionPayload `json:"questions" validate:"omitempty,dive"`
}

// QuestionResponse serializes one template question.
type QuestionResponse struct {
	ID        uint              `json:"id"`
	Text      string            `json:"text"`
	Type      string            `json:"type"`
	Part      int               `json:"part"`
	ImageURL  string            `json:"image_url,omitempty"`
	TableData *models.TableData `json:"table_data,omitempty"`
}

// TemplateResponse is returned to API clients when viewing templates.
type TemplateResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Questions   []QuestionResponse `json:"questions"`
	CreatedBy   UserLite           `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
}

// TemplateLite summarizes a template in exam listings.
type TemplateLite struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:        model.ID,
		Text:      model.Text,
		Type:      model.Type,
		Part:      model.Part,
		ImageURL:  model.ImageURL,
		TableData: model.Table(),
	}
}

// NewTemplateResponse converts an ExamTemplate model into a DTO.
func NewTemplateResponse(model models.ExamTemplate) TemplateResponse {
	questions := make([]QuestionResponse, 0, len(model.Questions))
	for _, question := range model.Questions {
		questions = append(questions, NewQuestionResponse(question))
	}

	response := TemplateResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Questions:   questions,
		CreatedAt:   model.CreatedAt,
	}

	if model.CreatedBy.ID != 0 {
		response.CreatedBy = NewUserLite(model.CreatedBy)
	}

	return response
}

// NewTemplateResponseSlice converts template models into DTOs.
func NewTemplateResponseSlice(templates []models.ExamTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, NewTemplateResponse(template))
	}

	return responses
}

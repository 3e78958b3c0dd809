package dto

import (
	"time"

	"github.com/nutq-platform/nutq-api/internal/models"
)

// AudioResponsePayload carries one per-question audio recording, encoded as
// a base64 data URI.
type AudioResponsePayload struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	AudioBlob  string `json:"audio_blob" validate:"required"`
}

// SubmitExamRequest is the payload for submitting a completed exam.
type SubmitExamRequest struct {
	ExamTemplateID uint                   `json:"exam_template_id" validate:"required,gt=0"`
	Responses      []AudioResponsePayload `json:"responses" validate:"required,min=1,dive"`
}

// PartFeedbackPayload carries the evaluator's verdict for one exam part.
type PartFeedbackPayload struct {
	Part     int     `json:"part" validate:"required,oneof=1 2 3"`
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback"`
}

// AnswerFeedbackPayload carries per-answer scoring applied during evaluation.
type AnswerFeedbackPayload struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback"`
}

// EvaluateExamRequest is the payload for evaluating a submitted exam.
// AnswerFeedbacks is keyed by answer id; answers without a key are left
// untouched.
type EvaluateExamRequest struct {
	Feedback        []PartFeedbackPayload          `json:"feedback" validate:"omitempty,dive"`
	TotalScore      float64                        `json:"total_score" validate:"gte=0"`
	AnswerFeedbacks map[uint]AnswerFeedbackPayload `json:"answer_feedbacks" validate:"omitempty,dive"`
}

// LegacyResponseView serializes one legacy-format answer.
type LegacyResponseView struct {
	ID         uint   `json:"id"`
	QuestionID uint   `json:"question_id"`
	AudioURL   string `json:"audio_url"`
}

// AnswerView serializes one current-format answer with its question snapshot.
type AnswerView struct {
	ID           uint                    `json:"id"`
	QuestionID   uint                    `json:"question_id"`
	QuestionData models.QuestionSnapshot `json:"question_data"`
	AudioURL     string                  `json:"audio_url"`
	Score        float64                 `json:"score"`
	Feedback     string                  `json:"feedback,omitempty"`
}

// PartFeedbackView serializes the evaluator's per-part verdict.
type PartFeedbackView struct {
	Part     int     `json:"part"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

// ExamResponse is returned to API clients when viewing exams.
type ExamResponse struct {
	ID          uint                 `json:"id"`
	Student     UserLite             `json:"student"`
	Template    TemplateLite         `json:"template"`
	Responses   []LegacyResponseView `json:"responses"`
	Answers     []AnswerView         `json:"answers"`
	Feedback    []PartFeedbackView   `json:"feedback"`
	TotalScore  float64              `json:"total_score"`
	Status      string               `json:"status"`
	SubmittedAt time.Time            `json:"submitted_at"`
	EvaluatedAt *time.Time           `json:"evaluated_at,omitempty"`
}

// NewExamResponse converts an Exam model into a DTO.
func NewExamResponse(model models.Exam) ExamResponse {
	responses := make([]LegacyResponseView, 0, len(model.Responses))
	for _, response := range model.Responses {
		responses = append(responses, LegacyResponseView{
			ID:         response.ID,
			QuestionID: response.QuestionID,
			AudioURL:   response.AudioURL,
		})
	}

	answers := make([]AnswerView, 0, len(model.Answers))
	for _, answer := range model.Answers {
		answers = append(answers, AnswerView{
			ID:           answer.ID,
			QuestionID:   answer.QuestionID,
			QuestionData: answer.Snapshot(),
			AudioURL:     answer.AudioURL,
			Score:        answer.Score,
			Feedback:     answer.Feedback,
		})
	}

	feedback := make([]PartFeedbackView, 0, len(model.Feedback))
	for _, entry := range model.Feedback {
		feedback = append(feedback, PartFeedbackView{
			Part:     entry.Part,
			Score:    entry.Score,
			Feedback: entry.Feedback,
		})
	}

	response := ExamResponse{
		ID:          model.ID,
		Responses:   responses,
		Answers:     answers,
		Feedback:    feedback,
		TotalScore:  model.TotalScore,
		Status:      model.Status,
		SubmittedAt: model.SubmittedAt,
		EvaluatedAt: model.EvaluatedAt,
	}

	if model.Student.ID != 0 {
		response.Student = NewUserLite(model.Student)
	}

	if model.Template.ID != 0 {
		response.Template = TemplateLite{
			ID:    model.Template.ID,
			Title: model.Template.Title,
		}
	}

	return response
}

// NewExamResponseSlice converts exam models into DTOs.
func NewExamResponseSlice(exams []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, NewExamResponse(exam))
	}

	return responses
}

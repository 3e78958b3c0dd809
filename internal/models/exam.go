package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	// ExamStatusSubmitted indicates the exam is waiting for evaluation.
	ExamStatusSubmitted = "submitted"
	// ExamStatusEvaluated indicates an administrator has scored the exam.
	ExamStatusEvaluated = "evaluated"
)

// QuestionSnapshot is the denormalized copy of question content stored with
// an answer at submission time. It decouples exam records from later
// template edits and deletions.
type QuestionSnapshot struct {
	Text      string     `json:"text"`
	Type      string     `json:"type"`
	ImageURL  string     `json:"image_url,omitempty"`
	TableData *TableData `json:"table_data,omitempty"`
	Part      int        `json:"part"`
}

// SnapshotOf captures the current content of a template question.
func SnapshotOf(q Question) QuestionSnapshot {
	return QuestionSnapshot{
		Text:      q.Text,
		Type:      q.Type,
		ImageURL:  q.ImageURL,
		TableData: q.Table(),
		Part:      q.Part,
	}
}

// LegacyResponse is the original minimal answer record, keyed only by
// question reference. Retained for backward compatibility; ExamAnswer is
// authoritative when scoring.
type LegacyResponse struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExamID     uint   `gorm:"not null;index" json:"exam_id"`
	QuestionID uint   `gorm:"not null" json:"question_id"`
	AudioURL   string `gorm:"size:512;not null" json:"audio_url"`
}

// ExamAnswer is the current-format answer: audio locator plus a snapshot of
// the question it responds to, with per-answer scoring fields.
type ExamAnswer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ExamID       uint           `gorm:"not null;index" json:"exam_id"`
	QuestionID   uint           `gorm:"not null" json:"question_id"`
	QuestionData datatypes.JSON `gorm:"type:json" json:"question_data"`
	AudioURL     string         `gorm:"size:512;not null" json:"audio_url"`
	Score        float64        `gorm:"not null;default:0" json:"score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
}

// SetSnapshot serializes the question snapshot into the JSON column.
func (a *ExamAnswer) SetSnapshot(snapshot QuestionSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		a.QuestionData = datatypes.JSON([]byte("{}"))
		return
	}
	a.QuestionData = datatypes.JSON(data)
}

// Snapshot deserializes the stored question snapshot.
func (a ExamAnswer) Snapshot() QuestionSnapshot {
	var snapshot QuestionSnapshot
	if len(a.QuestionData) == 0 {
		return snapshot
	}
	if err := json.Unmarshal(a.QuestionData, &snapshot); err != nil {
		return QuestionSnapshot{}
	}
	return snapshot
}

// ExamFeedback carries the evaluator's score and comments for one exam part.
type ExamFeedback struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	ExamID   uint    `gorm:"not null;index" json:"exam_id"`
	Part     int     `gorm:"not null" json:"part"`
	Score    float64 `gorm:"not null" json:"score"`
	Feedback string  `gorm:"type:text" json:"feedback"`
}

// Exam is one student submission against a template. Created once at
// submission time and mutated only by evaluation or deletion.
type Exam struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	StudentID   uint             `gorm:"not null;index" json:"student_id"`
	TemplateID  uint             `gorm:"not null;index" json:"template_id"`
	Responses   []LegacyResponse `gorm:"foreignKey:ExamID" json:"responses"`
	Answers     []ExamAnswer     `gorm:"foreignKey:ExamID" json:"answers"`
	Feedback    []ExamFeedback   `gorm:"foreignKey:ExamID" json:"feedback"`
	TotalScore  float64          `gorm:"not null;default:0" json:"total_score"`
	Status      string           `gorm:"size:32;not null;default:submitted" json:"status"`
	SubmittedAt time.Time        `gorm:"not null" json:"submitted_at"`
	EvaluatedAt *time.Time       `json:"evaluated_at"`
	Student     User             `gorm:"foreignKey:StudentID" json:"student"`
	Template    ExamTemplate     `gorm:"foreignKey:TemplateID" json:"template"`
}

// IsEvaluated reports whether an administrator has scored this exam.
func (e Exam) IsEvaluated() bool {
	return e.Status == ExamStatusEvaluated
}

// AudioLocators returns the de-duplicated union of audio URLs referenced by
// both answer representations, in first-seen order.
func (e Exam) AudioLocators() []string {
	seen := make(map[string]struct{})
	var locators []string

	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		locators = append(locators, url)
	}

	for _, response := range e.Responses {
		add(response.AudioURL)
	}
	for _, answer := range e.Answers {
		add(answer.AudioURL)
	}

	return locators
}

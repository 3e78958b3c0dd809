package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	// QuestionTypeText is a plain spoken-prompt question.
	QuestionTypeText = "text"
	// QuestionTypeImage is a question describing a picture.
	QuestionTypeImage = "image"
	// QuestionTypeTable is a question built around tabular data.
	QuestionTypeTable = "table"
)

// TableData is the tabular prompt attached to table-type questions.
type TableData struct {
	Topic   string     `json:"topic"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Question is a single prompt within an exam template. Parts 1-3 group
// questions into the sections of a speaking exam.
type Question struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TemplateID uint           `gorm:"not null;index" json:"template_id"`
	Position   int            `gorm:"not null" json:"position"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	Type       string         `gorm:"size:16;not null;default:text" json:"type"`
	Part       int            `gorm:"not null" json:"part"`
	ImageURL   string         `gorm:"size:512" json:"image_url,omitempty"`
	TableData  datatypes.JSON `gorm:"type:json" json:"table_data,omitempty"`
}

// SetTable serializes the tabular prompt into the JSON storage column.
func (q *Question) SetTable(table *TableData) {
	if table == nil {
		q.TableData = nil
		return
	}

	data, err := json.Marshal(table)
	if err != nil {
		q.TableData = nil
		return
	}
	q.TableData = datatypes.JSON(data)
}

// Table deserializes the stored tabular prompt, or nil when absent.
func (q Question) Table() *TableData {
	if len(q.TableData) == 0 {
		return nil
	}

	var table TableData
	if err := json.Unmarshal(q.TableData, &table); err != nil {
		return nil
	}

	return &table
}

// ExamTemplate is an admin-authored, reusable set of exam questions.
// Submitted exams snapshot question content, so templates may be edited or
// deleted without touching existing submissions.
type ExamTemplate struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedByID uint       `gorm:"index" json:"created_by_id"`
	Questions   []Question `gorm:"foreignKey:TemplateID" json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedBy   User       `gorm:"foreignKey:CreatedByID" json:"created_by"`
}

// QuestionByID resolves a question belonging to this template by identity.
func (t ExamTemplate) QuestionByID(id uint) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}

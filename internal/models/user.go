package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	// RoleStudent identifies a regular exam-taking user.
	RoleStudent = "student"
	// RoleAdmin identifies a user allowed to manage templates and evaluate exams.
	RoleAdmin = "admin"
)

// User represents a platform account, either a student or an administrator.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	FirstName    string         `gorm:"size:255;not null" json:"first_name"`
	LastName     string         `gorm:"size:255;not null" json:"last_name"`
	Username     string         `gorm:"size:255;uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Role         string         `gorm:"size:32;not null;default:student" json:"role"`
	AverageScore float64        `gorm:"not null;default:0" json:"average_score"`
	ExamHistory  datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins the user's first and last names for display.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ExamIDs deserializes the denormalized exam-history list. The exams table
// remains the source of truth; this is a convenience index only.
func (u User) ExamIDs() []uint {
	if len(u.ExamHistory) == 0 {
		return nil
	}

	var ids []uint
	if err := json.Unmarshal(u.ExamHistory, &ids); err != nil {
		return nil
	}

	return ids
}

// AppendExamID adds an exam to the history list, skipping duplicates.
func (u *User) AppendExamID(examID uint) {
	ids := u.ExamIDs()
	for _, id := range ids {
		if id == examID {
			return
		}
	}

	data, err := json.Marshal(append(ids, examID))
	if err != nil {
		return
	}
	u.ExamHistory = datatypes.JSON(data)
}

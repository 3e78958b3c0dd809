package dto

import (
	"time"

	"github.com/nutq-platform/nutq-api/internal/models"
)

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Username  string `json:"username" validate:"required,min=3"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a signed token together with the account it belongs to.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserUpdateRequest applies a partial update to a user profile.
type UserUpdateRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Username  *string `json:"username" validate:"omitempty,min=3"`
}

// ResetPasswordRequest is the admin payload for replacing a user's password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// UserResponse is returned to API clients when viewing accounts.
type UserResponse struct {
	ID           uint      `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	AverageScore float64   `json:"average_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// StudentStatsResponse aggregates a student's exam activity.
type StudentStatsResponse struct {
	ExamsTaken   int     `json:"exams_taken"`
	Evaluated    int     `json:"evaluated"`
	AverageScore float64 `json:"average_score"`
}

// NewUserResponse converts a User model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:           model.ID,
		FirstName:    model.FirstName,
		LastName:     model.LastName,
		Username:     model.Username,
		Role:         model.Role,
		AverageScore: model.AverageScore,
		CreatedAt:    model.CreatedAt,
	}
}

// NewUserResponseSlice converts user models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}

	return responses
}

// NewUserLite converts a User model into its summarized form.
func NewUserLite(model models.User) UserLite {
	return UserLite{
		ID:        model.ID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Username:  model.Username,
	}
}

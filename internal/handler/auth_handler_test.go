package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/models"
)

func TestAuthHandlerRegisterLoginMe(t *testing.T) {
	app, _ := setupApp(t)

	register := dto.RegisterRequest{FirstName: "Aisha", LastName: "Rahman", Username: "aisha", Password: "sup3rsecret"}
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var registered dto.AuthResponse
	decodeEnvelope(t, resp, &registered)
	require.NotEmpty(t, registered.Token)
	require.Equal(t, models.RoleStudent, registered.User.Role)

	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "aisha", Password: "sup3rsecret"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var logged dto.AuthResponse
	decodeEnvelope(t, resp, &logged)
	require.NotEmpty(t, logged.Token)

	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", logged.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me dto.UserResponse
	decodeEnvelope(t, resp, &me)
	require.Equal(t, "aisha", me.Username)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "ghost", Password: "nope"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandlerDuplicateUsername(t *testing.T) {
	app, _ := setupApp(t)

	register := dto.RegisterRequest{FirstName: "Aisha", LastName: "Rahman", Username: "aisha", Password: "sup3rsecret"}
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUserHandlerAdminRoutes(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)

	// Listing accounts is admin-only.
	resp := doJSON(t, app, http.MethodGet, "/api/users", signToken(t, student), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/users", signToken(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var users []dto.UserResponse
	decodeEnvelope(t, resp, &users)
	require.Len(t, users, 2)

	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/users/%d/reset-password", student.ID), signToken(t, admin), dto.ResetPasswordRequest{Password: "fresh-secret"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), signToken(t, admin), nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/users/%d", student.ID), signToken(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserHandlerSelfService(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	token := signToken(t, student)

	resp := doJSON(t, app, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me dto.UserResponse
	decodeEnvelope(t, resp, &me)
	require.Equal(t, "aisha", me.Username)

	resp = doJSON(t, app, http.MethodGet, "/api/users/me/stats", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats dto.StudentStatsResponse
	decodeEnvelope(t, resp, &stats)
	require.Zero(t, stats.ExamsTaken)
}

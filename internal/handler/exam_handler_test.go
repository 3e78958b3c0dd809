package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nutq-platform/nutq-api/internal/config"
	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/handler"
	"github.com/nutq-platform/nutq-api/internal/middleware"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/repository"
	"github.com/nutq-platform/nutq-api/internal/router"
	"github.com/nutq-platform/nutq-api/internal/service"
)

const testSecret = "handler-test-secret"

type handlerTestStorage struct{}

func (s *handlerTestStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://cdn.test/audio/" + name, nil
}

func (s *handlerTestStorage) Delete(_ context.Context, _ string) error { return nil }

func (s *handlerTestStorage) Exists(_ context.Context, _ string) (bool, error) { return true, nil }

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ExamTemplate{},
		&models.Question{},
		&models.Exam{},
		&models.LegacyResponse{},
		&models.ExamAnswer{},
		&models.ExamFeedback{},
	))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	storage := &handlerTestStorage{}
	events := service.NewEventPublisher(nil, logger)

	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	examRepo := repository.NewExamRepository(db)

	authService := service.NewAuthService(userRepo, validate, testSecret, time.Hour, logger)
	templateService := service.NewTemplateService(templateRepo, validate, logger)
	examService := service.NewExamService(examRepo, templateRepo, userRepo, validate, storage, events, logger)
	evaluationService := service.NewEvaluationService(examRepo, userRepo, validate, events, logger)
	userService := service.NewUserService(userRepo, examRepo, validate, nil, time.Minute, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Nutq Test", JWTSecret: testSecret}, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger),
		TemplateHandler: handler.NewTemplateHandler(templateService, logger),
		ExamHandler:     handler.NewExamHandler(examService, evaluationService, logger),
		UserHandler:     handler.NewUserHandler(userService, authService, logger),
		JWTMiddleware:   middleware.JWTProtected(testSecret),
	})

	return app, db
}

func seedAccount(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()

	user := models.User{FirstName: "Test", LastName: "User", Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedSpeakingTemplate(t *testing.T, db *gorm.DB) models.ExamTemplate {
	t.Helper()

	template := models.ExamTemplate{
		Title: "Speaking Mock",
		Questions: []models.Question{
			{Position: 0, Text: "Tell me about your hometown", Type: models.QuestionTypeText, Part: 1},
			{Position: 1, Text: "Describe the picture", Type: models.QuestionTypeImage, Part: 2},
		},
	}
	require.NoError(t, db.Create(&template).Error)
	return template
}

func signToken(t *testing.T, user models.User) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if data != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
}

func submitPayload(template models.ExamTemplate) dto.SubmitExamRequest {
	blob := "data:audio/webm;base64," + base64.StdEncoding.EncodeToString([]byte("recording"))
	responses := make([]dto.AudioResponsePayload, 0, len(template.Questions))
	for _, question := range template.Questions {
		responses = append(responses, dto.AudioResponsePayload{QuestionID: question.ID, AudioBlob: blob})
	}
	return dto.SubmitExamRequest{ExamTemplateID: template.ID, Responses: responses}
}

func TestExamHandlerSubmitAndFetch(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	template := seedSpeakingTemplate(t, db)
	token := signToken(t, student)

	resp := doJSON(t, app, http.MethodPost, "/api/exams/submit", token, submitPayload(template))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.ExamResponse
	decodeEnvelope(t, resp, &created)
	require.NotZero(t, created.ID)
	require.Len(t, created.Answers, 2)
	require.Equal(t, models.ExamStatusSubmitted, created.Status)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/exams/%d", created.ID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/exams/my-exams", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var mine []dto.ExamResponse
	decodeEnvelope(t, resp, &mine)
	require.Len(t, mine, 1)
}

func TestExamHandlerRejectsMissingToken(t *testing.T) {
	app, db := setupApp(t)
	template := seedSpeakingTemplate(t, db)

	resp := doJSON(t, app, http.MethodPost, "/api/exams/submit", "", submitPayload(template))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExamHandlerCrossStudentAccessForbidden(t *testing.T) {
	app, db := setupApp(t)
	owner := seedAccount(t, db, "aisha", models.RoleStudent)
	intruder := seedAccount(t, db, "bilal", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)
	template := seedSpeakingTemplate(t, db)

	resp := doJSON(t, app, http.MethodPost, "/api/exams/submit", signToken(t, owner), submitPayload(template))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.ExamResponse
	decodeEnvelope(t, resp, &created)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/exams/%d", created.ID), signToken(t, intruder), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/exams/%d", created.ID), signToken(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestExamHandlerAdminRoutesGated(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)

	resp := doJSON(t, app, http.MethodGet, "/api/exams/admin/exams", signToken(t, student), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/exams/admin/exams", signToken(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestExamHandlerEvaluateFlow(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)
	template := seedSpeakingTemplate(t, db)

	resp := doJSON(t, app, http.MethodPost, "/api/exams/submit", signToken(t, student), submitPayload(template))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.ExamResponse
	decodeEnvelope(t, resp, &created)

	evaluation := dto.EvaluateExamRequest{
		TotalScore: 82,
		Feedback: []dto.PartFeedbackPayload{
			{Part: 1, Score: 8, Feedback: "Confident delivery"},
		},
	}

	// Students cannot evaluate, not even their own exam.
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/exams/%d/evaluate", created.ID), signToken(t, student), evaluation)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/exams/%d/evaluate", created.ID), signToken(t, admin), evaluation)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var evaluated dto.ExamResponse
	decodeEnvelope(t, resp, &evaluated)
	require.Equal(t, models.ExamStatusEvaluated, evaluated.Status)
	require.Equal(t, 82.0, evaluated.TotalScore)
	require.Len(t, evaluated.Feedback, 1)
}

func TestExamHandlerAdminDelete(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)
	template := seedSpeakingTemplate(t, db)

	resp := doJSON(t, app, http.MethodPost, "/api/exams/submit", signToken(t, student), submitPayload(template))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.ExamResponse
	decodeEnvelope(t, resp, &created)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/exams/admin/exams/%d", created.ID), signToken(t, student), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/exams/admin/exams/%d", created.ID), signToken(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/exams/admin/exams/%d", created.ID), signToken(t, admin), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestTemplateHandlerAdminGated(t *testing.T) {
	app, db := setupApp(t)
	student := seedAccount(t, db, "aisha", models.RoleStudent)
	admin := seedAccount(t, db, "noor", models.RoleAdmin)

	payload := dto.TemplateCreateRequest{
		Title:     "Speaking Mock C",
		Questions: []dto.QuestionPayload{{Text: "Prompt", Part: 1}},
	}

	resp := doJSON(t, app, http.MethodPost, "/api/exams/templates", signToken(t, student), payload)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/exams/templates", signToken(t, admin), payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.TemplateResponse
	decodeEnvelope(t, resp, &created)
	require.NotZero(t, created.ID)
	require.Equal(t, admin.Username, created.CreatedBy.Username)

	// Reads stay open to any authenticated caller.
	resp = doJSON(t, app, http.MethodGet, "/api/exams/templates", signToken(t, student), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var templates []dto.TemplateResponse
	decodeEnvelope(t, resp, &templates)
	require.Len(t, templates, 1)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

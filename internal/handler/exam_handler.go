package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nutq-platform/nutq-api/internal/dto"
	"github.com/nutq-platform/nutq-api/internal/middleware"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/service"
	"github.com/nutq-platform/nutq-api/internal/utils"
)

// ExamHandler manages exam submission and evaluation endpoints.
type ExamHandler struct {
	exams       service.ExamService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewExamHandler builds an exam handler instance.
func NewExamHandler(exams service.ExamService, evaluations service.EvaluationService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:       exams,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Fixed-path
// routes go first so the ":id" wildcard cannot shadow them.
func (h *ExamHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Post("/submit", h.submit)
	router.Get("/my-exams", h.listMine)
	router.Get("/admin/exams", adminOnly, h.listAll)
	router.Delete("/admin/exams/:id", adminOnly, h.delete)
	router.Get("/:id", h.get)
	router.Put("/:id/evaluate", adminOnly, h.evaluate)
}

func (h *ExamHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitExamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.exams.Submit(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam submitted", exam)
}

func (h *ExamHandler) listMine(c *fiber.Ctx) error {
	exams, err := h.exams.ListForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) listAll(c *fiber.Ctx) error {
	exams, err := h.exams.ListAll(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exam, err := h.exams.Get(c.Context(), id, userIDFromContext(c), userRoleFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EvaluateExamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.evaluations.Evaluate(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam evaluated", exam)
}

func (h *ExamHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.exams.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam deleted", nil)
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam template not found")
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrNotExamOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not authorized")
	case errors.Is(err, service.ErrInvalidAudioData):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid audio data")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrAudioWriteFailed):
		h.logger.Error().Err(err).Msg("audio write failure")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to store audio recording")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

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

// UserHandler manages account administration endpoints.
type UserHandler struct {
	users  service.UserService
	auth   service.AuthService
	logger zerolog.Logger
}

// NewUserHandler builds a user handler instance.
func NewUserHandler(users service.UserService, auth service.AuthService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		auth:   auth,
		logger: logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Self-service
// routes go before the ":id" wildcard; management routes are admin only.
func (h *UserHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/me", h.me)
	router.Get("/me/stats", h.stats)
	router.Get("", adminOnly, h.list)
	router.Get("/:id", adminOnly, h.get)
	router.Put("/:id", adminOnly, h.update)
	router.Put("/:id/reset-password", adminOnly, h.resetPassword)
	router.Delete("/:id", adminOnly, h.delete)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	user, err := h.auth.Me(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) stats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stats retrieved", stats)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.users.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) resetPassword(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResetPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.users.ResetPassword(c.Context(), id, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "password reset", nil)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.users.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrUsernameTaken):
		return utils.SendError(c, fiber.StatusBadRequest, "username already exists")
	case errors.Is(err, service.ErrCannotDeleteAdmin):
		return utils.SendError(c, fiber.StatusBadRequest, "cannot delete admin user")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

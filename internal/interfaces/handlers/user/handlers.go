package user

import (
	"encoding/json"
	"errors"

	usersvc "streammap-backend/internal/application/user"
	"streammap-backend/internal/middleware"
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers bundles account administration handlers with the service.
type Handlers struct {
	Service *usersvc.Service
}

// UpdateRoleRequest body: role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// List GET /api/v1/users
func (h *Handlers) List(c *fiber.Ctx) error {
	users, err := h.Service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("users: list failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Users fetched successfully", users, fiber.Map{"count": len(users)})
}

// UpdateRole PATCH /api/v1/users/:id/role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	actorID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, usersvc.ErrUserNotFound.Error())
	}
	var req UpdateRoleRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Role == "" {
		return response.Error(c, "role is required", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.UpdateRole(c.Context(), usersvc.UpdateRoleInput{ActorID: actorID, TargetID: targetID, Role: req.Role})
	switch {
	case err == nil:
		return response.Success(c, "User role updated successfully", u, nil)
	case errors.Is(err, usersvc.ErrUserNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, usersvc.ErrInvalidRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, usersvc.ErrCannotModifyOwnRole), errors.Is(err, usersvc.ErrMustKeepOneAdministrator):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		log.Error().Err(err).Str("user_id", targetID.String()).Msg("users: role update failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

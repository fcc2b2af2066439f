package org

import (
	"encoding/json"
	"errors"

	orgsvc "streammap-backend/internal/application/org"
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers bundles organization handlers with the service.
type Handlers struct {
	Service *orgsvc.Service
}

// List GET /api/v1/organizations
func (h *Handlers) List(c *fiber.Ctx) error {
	orgs, err := h.Service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("organizations: list failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Organizations fetched successfully", orgs, fiber.Map{"count": len(orgs)})
}

// Create POST /api/v1/organizations
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in orgsvc.CreateInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return response.Error(c, orgsvc.ErrNameRequired.Error(), fiber.StatusBadRequest, nil)
	}
	o, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessCreated(c, "Organization created successfully", o, nil)
}

// Update PATCH /api/v1/organizations/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, orgsvc.ErrOrganizationNotFound.Error())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "No update fields provided", fiber.StatusBadRequest, nil)
	}
	o, err := h.Service.Update(c.Context(), id, body)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Organization updated successfully", o, nil)
}

func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orgsvc.ErrNameRequired), errors.Is(err, orgsvc.ErrNoUpdateFields):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, orgsvc.ErrOrganizationExists):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, orgsvc.ErrOrganizationNotFound):
		return response.NotFound(c, err.Error())
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("organizations: request failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

package states

import (
	"errors"

	statesvc "streammap-backend/internal/application/states"
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers exposes the region catalog.
type Handlers struct {
	Service *statesvc.Service
}

// List GET /api/v1/states
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("states: list failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "States fetched successfully", list, fiber.Map{"count": len(list)})
}

// Import POST /api/v1/states/import
// The body is a GeoJSON FeatureCollection of Polygon/MultiPolygon features.
func (h *Handlers) Import(c *fiber.Ctx) error {
	imported, err := h.Service.ImportGeoJSON(c.Context(), c.Body())
	if err != nil {
		if errors.Is(err, statesvc.ErrEmptyImport) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		var storeErr *statesvc.StoreError
		if errors.As(err, &storeErr) {
			log.Error().Err(err).Msg("states: import failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "States imported successfully", imported, fiber.Map{"count": len(imported)})
}

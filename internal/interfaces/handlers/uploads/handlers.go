package uploads

import (
	"encoding/json"

	projectsvc "streammap-backend/internal/application/projects"
	uploadsvc "streammap-backend/internal/application/uploads"
	projecthandlers "streammap-backend/internal/interfaces/handlers/projects"
	"streammap-backend/internal/middleware"
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles photo upload handlers with the project service.
type Handlers struct {
	Projects *projectsvc.Service
}

type photosRequest struct {
	Photos []uploadsvc.PhotoInput `json:"photos"`
}

// AddPhotos POST /api/v1/projects/:id/photos
// Declares photos for a project and returns one signed upload URL per photo.
func (h *Handlers) AddPhotos(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := projecthandlers.ParseProjectID(c)
	if !ok {
		return response.NotFound(c, "Project not found")
	}
	var req photosRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "photos are required", fiber.StatusBadRequest, nil)
	}

	slots, err := h.Projects.AddPhotos(c.Context(), id, projectsvc.Actor{UserID: userID, Role: role}, req.Photos)
	if err != nil {
		return projecthandlers.RespondError(c, err)
	}
	log.Info().Str("project_id", id.String()).Int("count", len(slots)).Msg("upload: photo URLs generated")
	return response.SuccessCreated(c, "Upload URLs generated", slots, nil)
}

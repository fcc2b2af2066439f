package projects

import (
	"encoding/json"
	"errors"
	"strings"

	projectsvc "streammap-backend/internal/application/projects"
	"streammap-backend/internal/application/uploads"
	"streammap-backend/internal/domain"
	"streammap-backend/internal/middleware"
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers bundles project handlers with the service.
type Handlers struct {
	Service *projectsvc.Service
}

// flexString accepts a JSON string or a bare literal and keeps the literal text exactly,
// so 44.0429694 is not routed through float64.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type projectRequest struct {
	Name                 string               `json:"name"`
	StreamName           string               `json:"stream_name"`
	ImplementationDate   string               `json:"implementation_date"`
	PrimaryContact       string               `json:"primary_contact"`
	Narrative            string               `json:"narrative"`
	StructureDescription string               `json:"structure_description"`
	Watershed            string               `json:"watershed"`
	URL                  string               `json:"url"`
	Length               flexString           `json:"length"`
	NumberOfStructures   flexString           `json:"number_of_structures"`
	Latitude             flexString           `json:"latitude"`
	Longitude            flexString           `json:"longitude"`
	Affiliation          *string              `json:"affiliation"`
	OrganizationIDs      []string             `json:"organization_ids"`
	Photos               []uploads.PhotoInput `json:"photos"`
}

func (r projectRequest) input() (projectsvc.ProjectInput, error) {
	ids, err := parseIDs(r.OrganizationIDs)
	if err != nil {
		return projectsvc.ProjectInput{}, projectsvc.ValidationErrors{{Field: "organization_ids", Message: projectsvc.MsgUnknownOrgRef}}
	}
	return projectsvc.ProjectInput{
		Name:                 r.Name,
		StreamName:           r.StreamName,
		ImplementationDate:   r.ImplementationDate,
		PrimaryContact:       r.PrimaryContact,
		Narrative:            r.Narrative,
		StructureDescription: r.StructureDescription,
		Watershed:            r.Watershed,
		URL:                  r.URL,
		Length:               string(r.Length),
		NumberOfStructures:   string(r.NumberOfStructures),
		Latitude:             string(r.Latitude),
		Longitude:            string(r.Longitude),
		Affiliation:          r.Affiliation,
		OrganizationIDs:      ids,
		Photos:               r.Photos,
	}, nil
}

// projectView adds the display heading and byline to a project.
type projectView struct {
	*domain.Project
	Title  string `json:"title"`
	Byline string `json:"byline"`
}

func view(p *domain.Project) projectView {
	return projectView{Project: p, Title: p.Title(), Byline: p.Byline()}
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func filterFromQuery(c *fiber.Ctx) (projectsvc.Filter, error) {
	var raw []string
	if v := c.Query("organization_ids"); v != "" {
		raw = strings.Split(v, ",")
	}
	ids, err := parseIDs(raw)
	if err != nil {
		return projectsvc.Filter{}, err
	}
	return projectsvc.Filter{Term: c.Query("search"), OrganizationIDs: ids}, nil
}

// RespondError maps service errors onto the standard error envelope.
func RespondError(c *fiber.Ctx, err error) error {
	var verrs projectsvc.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return response.UnprocessableEntity(c, "Validation failed", verrs)
	case errors.Is(err, projectsvc.ErrSaveAborted):
		return response.UnprocessableEntity(c, "Validation failed", projectsvc.ValidationErrors{
			{Field: "latitude", Message: projectsvc.MsgBlank},
			{Field: "longitude", Message: projectsvc.MsgBlank},
		})
	case errors.Is(err, projectsvc.ErrProjectNotFound):
		return response.NotFound(c, "Project not found")
	case errors.Is(err, projectsvc.ErrForbidden):
		return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
	case errors.Is(err, projectsvc.ErrRegionUnavailable), errors.Is(err, uploads.ErrStorageUnavailable):
		log.Warn().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("projects: dependency unavailable")
		return response.Error(c, "Service temporarily unavailable", fiber.StatusServiceUnavailable, nil)
	default:
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("projects: request failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

// ParseProjectID reads the :id route parameter.
func ParseProjectID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// List GET /api/v1/projects?search=&organization_ids=
func (h *Handlers) List(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.Error(c, "organization_ids must be uuids", fiber.StatusBadRequest, nil)
	}
	list, err := h.Service.Search(c.Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	out := make([]projectView, 0, len(list))
	for i := range list {
		out = append(out, view(&list[i]))
	}
	return response.Success(c, "Projects fetched successfully", out, fiber.Map{"count": len(out)})
}

// Stats GET /api/v1/projects/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.Error(c, "organization_ids must be uuids", fiber.StatusBadRequest, nil)
	}
	stats, err := h.Service.Stats(c.Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Project stats fetched successfully", stats, nil)
}

// Markers GET /api/v1/projects/markers
func (h *Handlers) Markers(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.Error(c, "organization_ids must be uuids", fiber.StatusBadRequest, nil)
	}
	markers, err := h.Service.Markers(c.Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Markers fetched successfully", markers, fiber.Map{"count": len(markers)})
}

// Get GET /api/v1/projects/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := ParseProjectID(c)
	if !ok {
		return response.NotFound(c, "Project not found")
	}
	p, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Project fetched successfully", view(p), nil)
}

// Create POST /api/v1/projects
func (h *Handlers) Create(c *fiber.Ctx) error {
	authorID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req projectRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "Invalid JSON body", fiber.StatusBadRequest, nil)
	}
	in, err := req.input()
	if err != nil {
		return RespondError(c, err)
	}
	res, err := h.Service.Create(c.Context(), authorID, in)
	if err != nil {
		return RespondError(c, err)
	}
	return response.SuccessCreated(c, "Project created successfully", fiber.Map{
		"project": view(res.Project),
		"uploads": res.Uploads,
	}, nil)
}

// Update PUT /api/v1/projects/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := ParseProjectID(c)
	if !ok {
		return response.NotFound(c, "Project not found")
	}
	var req projectRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "Invalid JSON body", fiber.StatusBadRequest, nil)
	}
	in, err := req.input()
	if err != nil {
		return RespondError(c, err)
	}
	res, err := h.Service.Update(c.Context(), id, projectsvc.Actor{UserID: userID, Role: role}, in)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Project updated successfully", fiber.Map{
		"project": view(res.Project),
		"uploads": res.Uploads,
	}, nil)
}

// Delete DELETE /api/v1/projects/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, ok := ParseProjectID(c)
	if !ok {
		return response.NotFound(c, "Project not found")
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Project deleted successfully", fiber.Map{"project_id": id}, nil)
}

package projects

import (
	"context"
	"fmt"

	"streammap-backend/internal/domain"

	"github.com/google/uuid"
)

// Marker is the map pin of one project.
type Marker struct {
	ID          uuid.UUID `json:"id"`
	ProjectName string    `json:"project_name"`
	StreamName  string    `json:"stream_name"`
	Watershed   string    `json:"watershed"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Path        string    `json:"path"`
}

// Markers returns one marker per located project selected by f.
func (s *Service) Markers(ctx context.Context, f Filter) ([]Marker, error) {
	var rows []domain.Project
	err := s.scope(ctx, f).
		Select("project_id", "name", "stream_name", "watershed", "lonlat").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("project markers: %w", err)
	}
	out := make([]Marker, 0, len(rows))
	for _, p := range rows {
		if p.Lonlat.IsZero() {
			continue
		}
		out = append(out, Marker{
			ID:          p.ProjectID,
			ProjectName: p.Name,
			StreamName:  p.StreamName,
			Watershed:   p.Watershed,
			Latitude:    p.Lonlat.Y(),
			Longitude:   p.Lonlat.X(),
			Path:        "/projects/" + p.ProjectID.String(),
		})
	}
	return out, nil
}

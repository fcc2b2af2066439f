package projects

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var metersPerKilometer = decimal.NewFromInt(1000)

// Stats summarizes a project set.
type Stats struct {
	ProjectCount         int64   `json:"project_count"`
	StructureSum         int64   `json:"structure_sum"`
	ProjectTotalLengthKm float64 `json:"project_total_length_km"`
}

// Stats aggregates the projects selected by f.
func (s *Service) Stats(ctx context.Context, f Filter) (*Stats, error) {
	var row struct {
		ProjectCount int64
		StructureSum int64
		LengthSum    int64
	}
	err := s.scope(ctx, f).
		Select("COUNT(*) AS project_count, COALESCE(SUM(number_of_structures), 0) AS structure_sum, COALESCE(SUM(length), 0) AS length_sum").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	return &Stats{
		ProjectCount:         row.ProjectCount,
		StructureSum:         row.StructureSum,
		ProjectTotalLengthKm: LengthKilometers(row.LengthSum),
	}, nil
}

// LengthKilometers converts meters to kilometers rounded to one place, half away from zero.
func LengthKilometers(meters int64) float64 {
	return decimal.NewFromInt(meters).Div(metersPerKilometer).Round(1).InexactFloat64()
}

package states

import (
	"context"
	"errors"
	"fmt"

	"streammap-backend/internal/domain"
	"streammap-backend/internal/geo"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyImport is returned when an import file holds no features.
var ErrEmptyImport = errors.New("region import contains no features")

// ErrDuplicateState is returned when one import file names the same state twice.
var ErrDuplicateState = errors.New("region import repeats a state name")

// StoreError marks an import that parsed but could not be written.
type StoreError struct{ Err error }

func (e *StoreError) Error() string { return "import states: " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// Service reads and maintains the state (region) catalog.
type Service struct {
	DB *gorm.DB
	// Cache, when set, is invalidated after every import.
	Cache *geo.CachedCatalog
}

// StateSummary is the public listing shape; geometry is omitted.
type StateSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Regions implements geo.Catalog over the states table, ordered by id.
func (s *Service) Regions(ctx context.Context) ([]geo.Region, error) {
	var rows []domain.State
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	regions := make([]geo.Region, 0, len(rows))
	for _, row := range rows {
		g, err := geojson.UnmarshalGeometry(row.Geom)
		if err != nil {
			// One broken row must not hide the rest of the catalog.
			log.Warn().Err(err).Uint("state_id", row.ID).Str("state", row.Name).Msg("states: skipping unreadable geometry")
			continue
		}
		regions = append(regions, geo.Region{ID: row.ID, Name: row.Name, Geometry: g.Geometry()})
	}
	return regions, nil
}

// List returns every state without geometry.
func (s *Service) List(ctx context.Context) ([]StateSummary, error) {
	var out []StateSummary
	if err := s.DB.WithContext(ctx).Model(&domain.State{}).
		Select("id, name, abbreviation").
		Order("name ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	return out, nil
}

// Count returns the number of cataloged states.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.State{}).Count(&n).Error
	return n, err
}

// ImportGeoJSON upserts every feature of a FeatureCollection by name. Existing projects keep
// their state_id until they are saved again.
func (s *Service) ImportGeoJSON(ctx context.Context, data []byte) ([]StateSummary, error) {
	features, err := geo.ParseRegionFeatures(data)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, ErrEmptyImport
	}

	rows := make([]domain.State, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateState, f.Name)
		}
		seen[f.Name] = struct{}{}
		geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode geometry for %s: %w", f.Name, err)
		}
		rows = append(rows, domain.State{
			Name:         f.Name,
			Abbreviation: f.Abbreviation,
			Geom:         datatypes.JSON(geom),
		})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"abbreviation", "geom", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	if s.Cache != nil {
		s.Cache.Invalidate()
	}
	log.Info().Int("count", len(rows)).Msg("states: catalog imported")

	out := make([]StateSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, StateSummary{ID: r.ID, Name: r.Name, Abbreviation: r.Abbreviation})
	}
	return out, nil
}

package geo

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
)

// Region is one entry of the containment catalog. Geometry is a Polygon or MultiPolygon
// in WGS84; any other geometry never contains a point.
type Region struct {
	ID       uint
	Name     string
	Geometry orb.Geometry
}

// Contains reports whether the region geometry contains pt.
func (r Region) Contains(pt orb.Point) bool {
	if r.Geometry == nil || !r.Geometry.Bound().Contains(pt) {
		return false
	}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	default:
		return false
	}
}

// ResolveRegion returns the id of the region containing p. Regions are expected not to
// overlap; when several match, the first one in catalog order wins and the ambiguity is logged.
func ResolveRegion(p Point, regions []Region) (*uint, bool) {
	pt := p.Orb()
	var matches []uint
	for _, r := range regions {
		if r.Contains(pt) {
			matches = append(matches, r.ID)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	if len(matches) > 1 {
		log.Warn().Str("point", p.EWKT()).Uints("region_ids", matches).
			Msg("region resolve: point contained by several regions, using the first")
	}
	id := matches[0]
	return &id, true
}

// Catalog supplies the region polygons. Implementations return regions ordered by id.
type Catalog interface {
	Regions(ctx context.Context) ([]Region, error)
}

// Resolver resolves points against a Catalog.
type Resolver struct {
	Catalog Catalog
}

// Resolve returns the containing region id, or nil when the point lies outside every region.
// A malformed point or an unreachable catalog is reported as an error; whether that blocks
// a save is the caller's policy.
func (r *Resolver) Resolve(ctx context.Context, p Point) (*uint, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("resolve region for %s: %w", p.EWKT(), ErrMalformedPoint)
	}
	if r == nil || r.Catalog == nil {
		return nil, fmt.Errorf("resolve region: no catalog configured")
	}
	regions, err := r.Catalog.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve region: load catalog: %w", err)
	}
	id, _ := ResolveRegion(p, regions)
	return id, nil
}

package geo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// StaticCatalog is an in-memory catalog, used by tests and by CachedCatalog snapshots.
type StaticCatalog []Region

func (c StaticCatalog) Regions(ctx context.Context) ([]Region, error) {
	out := make([]Region, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CachedCatalog keeps a snapshot of another catalog for TTL. The region set is static, so a
// stale snapshot only matters right after an import, which calls Invalidate.
type CachedCatalog struct {
	Source Catalog
	TTL    time.Duration

	mu      sync.RWMutex
	regions []Region
	loaded  time.Time
	now     func() time.Time
}

// NewCachedCatalog wraps src with a ttl snapshot.
func NewCachedCatalog(src Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{Source: src, TTL: ttl, now: time.Now}
}

func (c *CachedCatalog) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *CachedCatalog) Regions(ctx context.Context) ([]Region, error) {
	c.mu.RLock()
	if c.regions != nil && c.clock().Sub(c.loaded) < c.TTL {
		regions := c.regions
		c.mu.RUnlock()
		return regions, nil
	}
	c.mu.RUnlock()

	regions, err := c.Source.Regions(ctx)
	if err != nil {
		return nil, err
	}
	if regions == nil {
		regions = []Region{}
	}
	c.mu.Lock()
	c.regions = regions
	c.loaded = c.clock()
	c.mu.Unlock()
	return regions, nil
}

// Invalidate drops the snapshot so the next lookup reloads from Source.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.regions = nil
	c.mu.Unlock()
}

// RegionFeature is a named polygon read from a GeoJSON feature.
type RegionFeature struct {
	Name         string
	Abbreviation string
	Geometry     orb.Geometry
}

// ParseRegionFeatures reads a GeoJSON FeatureCollection of Polygon/MultiPolygon features.
// The region name is taken from the first non-empty property among nameKeys.
func ParseRegionFeatures(data []byte, nameKeys ...string) ([]RegionFeature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse region geojson: %w", err)
	}
	if len(nameKeys) == 0 {
		nameKeys = []string{"name", "NAME", "state", "STATE_NAME"}
	}
	out := make([]RegionFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("parse region geojson: feature %d: unsupported geometry %T", i, f.Geometry)
		}
		name := ""
		for _, k := range nameKeys {
			if s := strings.TrimSpace(f.Properties.MustString(k, "")); s != "" {
				name = s
				break
			}
		}
		if name == "" {
			return nil, fmt.Errorf("parse region geojson: feature %d has no name property", i)
		}
		abbr := f.Properties.MustString("abbreviation", "")
		if abbr == "" {
			abbr = f.Properties.MustString("STUSPS", "")
		}
		out = append(out, RegionFeature{Name: name, Abbreviation: abbr, Geometry: f.Geometry})
	}
	return out, nil
}

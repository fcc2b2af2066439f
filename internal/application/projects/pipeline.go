package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streammap-backend/internal/domain"
	"streammap-backend/internal/geo"

	"github.com/rs/zerolog/log"
)

var (
	// ErrSaveAborted means derivation could not run; nothing may be persisted.
	ErrSaveAborted = errors.New("project save aborted")
	// ErrRegionUnavailable is returned in strict mode when the region lookup fails.
	ErrRegionUnavailable = errors.New("region lookup unavailable")
)

// DefaultRegionTimeout bounds a single region lookup.
const DefaultRegionTimeout = 2 * time.Second

// RegionResolver finds the region containing a point.
type RegionResolver interface {
	Resolve(ctx context.Context, p geo.Point) (*uint, error)
}

// Pipeline derives the stored location fields of a project before it is persisted.
type Pipeline struct {
	Normalizer *geo.Normalizer
	Resolver   RegionResolver
	// Strict turns region lookup failures into save failures instead of a nil state.
	Strict  bool
	Timeout time.Duration
}

// NewPipeline returns a lenient pipeline over resolver with the default timeout.
func NewPipeline(resolver RegionResolver) *Pipeline {
	return &Pipeline{Normalizer: geo.NewNormalizer(), Resolver: resolver, Timeout: DefaultRegionTimeout}
}

// Prepare normalizes the transient coordinates into Lonlat and resolves StateID.
// On error neither field is modified.
func (p *Pipeline) Prepare(ctx context.Context, project *domain.Project) error {
	normalizer := p.Normalizer
	if normalizer == nil {
		normalizer = geo.NewNormalizer()
	}
	point, err := normalizer.Normalize(project.Latitude, project.Longitude)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveAborted, err)
	}

	stateID, err := p.resolve(ctx, point)
	if err != nil {
		if p.Strict {
			return fmt.Errorf("%w: %w", ErrRegionUnavailable, err)
		}
		log.Warn().Err(err).Str("project_id", project.ProjectID.String()).Str("point", point.EWKT()).
			Msg("projects: region lookup failed, saving without state")
		stateID = nil
	}

	project.Lonlat = point
	project.StateID = stateID
	return nil
}

func (p *Pipeline) resolve(ctx context.Context, point geo.Point) (*uint, error) {
	if p.Resolver == nil {
		return nil, errors.New("no region resolver configured")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultRegionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Resolver.Resolve(ctx, point)
}

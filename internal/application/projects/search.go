package projects

import (
	"context"
	"fmt"
	"strings"

	"streammap-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows the project set for listing, aggregates and markers.
type Filter struct {
	Term            string
	OrganizationIDs []uuid.UUID
}

// Blank reports whether the filter selects every project. Organization ids alone do not
// narrow the set; they only apply together with a search term.
func (f Filter) Blank() bool {
	return strings.TrimSpace(f.Term) == ""
}

// scope builds a fresh query over projects restricted by f.
func (s *Service) scope(ctx context.Context, f Filter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&domain.Project{})
	if f.Blank() {
		return q
	}
	like := "%" + strings.TrimSpace(f.Term) + "%"
	q = q.Where(s.DB.Where("projects.name LIKE ?", like).
		Or("projects.watershed LIKE ?", like).
		Or("projects.stream_name LIKE ?", like))

	if len(f.OrganizationIDs) > 0 {
		affiliated := s.DB.Model(&domain.Affiliation{}).
			Select("project_id").
			Where("organization_id IN ?", f.OrganizationIDs)
		q = q.Where("projects.project_id IN (?)", affiliated)
	}
	return q
}

// Search returns the projects matching f, each with its organizations. Order is unspecified.
func (s *Service) Search(ctx context.Context, f Filter) ([]domain.Project, error) {
	var out []domain.Project
	if err := s.scope(ctx, f).Preload("Organizations").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	return out, nil
}

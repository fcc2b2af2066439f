package org

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streammap-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = errors.New("Organization not found")
	ErrOrganizationExists   = errors.New("Organization name is already taken")
	ErrNameRequired         = errors.New("name is required")
	ErrNoUpdateFields       = errors.New("No valid fields to update")
)

// Service encapsulates organization operations.
type Service struct {
	DB *gorm.DB
}

// CreateInput is the payload for a new organization.
type CreateInput struct {
	Name        string  `json:"name"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
}

// List returns every organization ordered by name.
func (s *Service) List(ctx context.Context) ([]domain.Organization, error) {
	var out []domain.Organization
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return out, nil
}

// Get returns one organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var o domain.Organization
	err := s.DB.WithContext(ctx).Where("organization_id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create adds an organization. Names are unique.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	taken, err := s.nameTaken(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrOrganizationExists
	}

	o := &domain.Organization{Name: name, URL: trimmed(in.URL), Description: trimmed(in.Description)}
	if err := s.DB.WithContext(ctx).Create(o).Error; err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return o, nil
}

// Update changes the allowed fields (name, url, description) of an organization.
func (s *Service) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Organization, error) {
	allowed := map[string]bool{
		"name":        true,
		"url":         true,
		"description": true,
	}
	valid := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			valid[k] = v
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoUpdateFields
	}

	if raw, ok := valid["name"]; ok {
		name, _ := raw.(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrNameRequired
		}
		taken, err := s.nameTaken(ctx, name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrOrganizationExists
		}
		valid["name"] = name
	}

	result := s.DB.WithContext(ctx).Model(&domain.Organization{}).
		Where("organization_id = ?", id).
		Updates(valid)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrganizationNotFound
	}
	return s.Get(ctx, id)
}

func (s *Service) nameTaken(ctx context.Context, name string, except uuid.UUID) (bool, error) {
	var n int64
	q := s.DB.WithContext(ctx).Model(&domain.Organization{}).Where("name = ?", name)
	if except != uuid.Nil {
		q = q.Where("organization_id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

package projects

import (
	"context"
	"errors"
	"fmt"

	"streammap-backend/internal/application/uploads"
	"streammap-backend/internal/domain"
	"streammap-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrForbidden       = errors.New("not allowed to modify this project")
)

// PhotoPreparer signs uploads and builds the photo rows for a project.
type PhotoPreparer interface {
	PreparePhotos(ctx context.Context, projectID uuid.UUID, photos []uploads.PhotoInput) ([]domain.Photo, []uploads.PhotoUpload, error)
}

// Actor is the authenticated user performing a change.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) canEdit(p *domain.Project) bool {
	return a.Role == constants.Admin || a.UserID == p.AuthorID
}

// Service runs the project record lifecycle.
type Service struct {
	DB       *gorm.DB
	Pipeline *Pipeline
	Photos   PhotoPreparer
}

// SaveResult is a persisted project plus the upload slots for any photos it declared.
type SaveResult struct {
	Project *domain.Project       `json:"project"`
	Uploads []uploads.PhotoUpload `json:"uploads"`
}

// Create validates, derives and persists a new project authored by authorID.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in ProjectInput) (*SaveResult, error) {
	attrs, err := in.Validate(0)
	if err != nil {
		return nil, err
	}
	orgIDs, err := s.checkOrganizations(ctx, in.OrganizationIDs)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{ProjectID: uuid.New(), AuthorID: authorID}
	attrs.apply(project)
	if err := s.Pipeline.Prepare(ctx, project); err != nil {
		return nil, err
	}

	photos, slots, err := s.preparePhotos(ctx, project.ProjectID, in.Photos)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project.AffiliationsCount = len(orgIDs)
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := replaceAffiliations(tx, project.ProjectID, orgIDs); err != nil {
			return err
		}
		return insertPhotos(tx, photos)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("project_id", project.ProjectID.String()).Str("author_id", authorID.String()).
		Interface("state_id", project.StateID).Msg("projects: created")
	return s.result(ctx, project.ProjectID, slots)
}

// Update re-validates and re-derives an existing project. Only its author or an admin may
// change it; organizations are replaced wholesale.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actor Actor, in ProjectInput) (*SaveResult, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canEdit(project) {
		return nil, ErrForbidden
	}

	existing, err := s.photoCount(ctx, id)
	if err != nil {
		return nil, err
	}
	attrs, err := in.Validate(int(existing))
	if err != nil {
		return nil, err
	}
	orgIDs, err := s.checkOrganizations(ctx, in.OrganizationIDs)
	if err != nil {
		return nil, err
	}

	attrs.apply(project)
	if err := s.Pipeline.Prepare(ctx, project); err != nil {
		return nil, err
	}
	photos, slots, err := s.preparePhotos(ctx, id, in.Photos)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project.AffiliationsCount = len(orgIDs)
		if err := tx.Omit(clause.Associations).Save(project).Error; err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		if err := replaceAffiliations(tx, id, orgIDs); err != nil {
			return err
		}
		return insertPhotos(tx, photos)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("project_id", id.String()).Str("actor_id", actor.UserID.String()).Msg("projects: updated")
	return s.result(ctx, id, slots)
}

// result reloads the saved project with its associations for the response.
func (s *Service) result(ctx context.Context, id uuid.UUID, slots []uploads.PhotoUpload) (*SaveResult, error) {
	saved, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Project: saved, Uploads: slots}, nil
}

// AddPhotos attaches more photos to an existing project.
func (s *Service) AddPhotos(ctx context.Context, id uuid.UUID, actor Actor, in []uploads.PhotoInput) ([]uploads.PhotoUpload, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canEdit(project) {
		return nil, ErrForbidden
	}
	if len(in) == 0 {
		return nil, ValidationErrors{{Field: "photos", Message: MsgBlank}}
	}
	existing, err := s.photoCount(ctx, id)
	if err != nil {
		return nil, err
	}
	var errs ValidationErrors
	for _, v := range uploads.CheckPhotos(int(existing), in) {
		errs.add(v.Field, v.Message)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	photos, slots, err := s.preparePhotos(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if err := insertPhotos(s.DB.WithContext(ctx), photos); err != nil {
		return nil, err
	}
	return slots, nil
}

// Get loads one project with its state, organizations and photos.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := s.DB.WithContext(ctx).
		Preload("State").
		Preload("Organizations", func(db *gorm.DB) *gorm.DB { return db.Order("organizations.name ASC") }).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("photos.created_at ASC") }).
		Where("project_id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// Delete removes a project together with its photos and affiliations.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&domain.Photo{}).Error; err != nil {
			return fmt.Errorf("delete photos: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&domain.Affiliation{}).Error; err != nil {
			return fmt.Errorf("delete affiliations: %w", err)
		}
		res := tx.Where("project_id = ?", id).Delete(&domain.Project{})
		if res.Error != nil {
			return fmt.Errorf("delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("project_id", id.String()).Msg("projects: deleted")
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := s.DB.WithContext(ctx).Where("project_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return &p, nil
}

func (s *Service) photoCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Photo{}).Where("project_id = ?", id).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}
	return n, nil
}

func (s *Service) preparePhotos(ctx context.Context, id uuid.UUID, in []uploads.PhotoInput) ([]domain.Photo, []uploads.PhotoUpload, error) {
	if len(in) == 0 {
		return nil, nil, nil
	}
	if s.Photos == nil {
		return nil, nil, uploads.ErrStorageUnavailable
	}
	return s.Photos.PreparePhotos(ctx, id, in)
}

// checkOrganizations deduplicates ids and rejects any that do not exist.
func (s *Service) checkOrganizations(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Organization{}).
		Where("organization_id IN ?", unique).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check organizations: %w", err)
	}
	if int(n) != len(unique) {
		return nil, ValidationErrors{{Field: "organization_ids", Message: MsgUnknownOrgRef}}
	}
	return unique, nil
}

func replaceAffiliations(tx *gorm.DB, projectID uuid.UUID, orgIDs []uuid.UUID) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&domain.Affiliation{}).Error; err != nil {
		return fmt.Errorf("clear affiliations: %w", err)
	}
	if len(orgIDs) == 0 {
		return nil
	}
	rows := make([]domain.Affiliation, 0, len(orgIDs))
	for _, id := range orgIDs {
		rows = append(rows, domain.Affiliation{ProjectID: projectID, OrganizationID: id})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("create affiliations: %w", err)
	}
	return nil
}

func insertPhotos(tx *gorm.DB, photos []domain.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	if err := tx.Create(&photos).Error; err != nil {
		return fmt.Errorf("create photos: %w", err)
	}
	return nil
}

func (a *attributes) apply(p *domain.Project) {
	p.Name = a.name
	p.StreamName = a.streamName
	p.ImplementationDate = datatypes.Date(a.implementationDate)
	p.PrimaryContact = a.primaryContact
	p.Narrative = a.narrative
	p.StructureDescription = a.structureDescription
	p.Watershed = a.watershed
	p.URL = a.url
	p.Length = a.length
	p.NumberOfStructures = a.numberOfStructures
	lat, lon := a.latitude, a.longitude
	p.Latitude, p.Longitude = &lat, &lon
	p.AffiliationLegacy = a.affiliation
}

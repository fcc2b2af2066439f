package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Affiliation joins a Project to an Organization. Removing a project removes its
// affiliations; the organizations are left alone.
type Affiliation struct {
	AffiliationID  uuid.UUID `gorm:"column:affiliation_id;type:uuid;primaryKey" json:"affiliation_id"`
	ProjectID      uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_affiliation_pair" json:"project_id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_affiliation_pair;index" json:"organization_id"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Affiliation) TableName() string {
	return "affiliations"
}

func (a *Affiliation) BeforeCreate(tx *gorm.DB) error {
	if a.AffiliationID == uuid.Nil {
		a.AffiliationID = uuid.New()
	}
	return nil
}

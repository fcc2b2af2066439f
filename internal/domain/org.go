package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is a sponsoring body a project can be affiliated with.
type Organization struct {
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;primaryKey" json:"organization_id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	URL            *string   `gorm:"column:url" json:"url"`
	Description    *string   `gorm:"column:description;type:text" json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Organization) TableName() string {
	return "organizations"
}

// BeforeCreate ensures organization_id is set for DBs without default uuid.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.OrganizationID == uuid.Nil {
		o.OrganizationID = uuid.New()
	}
	return nil
}

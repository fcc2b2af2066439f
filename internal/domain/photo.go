package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Photo is an image attached to a project. The bytes live in object storage under Path.
type Photo struct {
	PhotoID     uuid.UUID `gorm:"column:photo_id;type:uuid;primaryKey" json:"photo_id"`
	ProjectID   uuid.UUID `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	FileName    string    `gorm:"column:file_name;not null" json:"file_name"`
	ContentType string    `gorm:"column:content_type;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Path        string    `gorm:"column:path;not null" json:"path"`
	PublicURL   string    `gorm:"column:public_url;not null" json:"public_url"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Photo) TableName() string {
	return "photos"
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.PhotoID == uuid.Nil {
		p.PhotoID = uuid.New()
	}
	return nil
}

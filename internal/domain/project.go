package domain

import (
	"fmt"
	"strings"
	"time"

	"streammap-backend/internal/geo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImplementationDateLayout is the wire and storage format of implementation dates.
const ImplementationDateLayout = "2006-01-02"

// bylineDateLayout renders dates as "October 5, 2018".
const bylineDateLayout = "January 2, 2006"

// Project is a stream-restoration construction project.
//
// Latitude and Longitude are the raw user input and are not columns: Lonlat is derived from
// them on every save and they are re-derived from Lonlat when a row is loaded.
type Project struct {
	ProjectID            uuid.UUID      `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	Name                 string         `gorm:"column:name;not null;index" json:"name"`
	StreamName           string         `gorm:"column:stream_name;not null;index" json:"stream_name"`
	ImplementationDate   datatypes.Date `gorm:"column:implementation_date;not null" json:"implementation_date"`
	PrimaryContact       string         `gorm:"column:primary_contact;not null" json:"primary_contact"`
	Narrative            string         `gorm:"column:narrative;type:text;not null" json:"narrative"`
	StructureDescription string         `gorm:"column:structure_description;type:text;not null" json:"structure_description"`
	Watershed            string         `gorm:"column:watershed;not null;index" json:"watershed"`
	URL                  string         `gorm:"column:url;not null" json:"url"`
	Length               int64          `gorm:"column:length;not null" json:"length"`
	NumberOfStructures   int64          `gorm:"column:number_of_structures;not null" json:"number_of_structures"`
	Lonlat               geo.Point      `gorm:"column:lonlat;type:text" json:"lonlat"`
	StateID              *uint          `gorm:"column:state_id;index" json:"state_id"`
	AuthorID             uuid.UUID      `gorm:"column:author_id;type:uuid;not null;index" json:"author_id"`
	AffiliationLegacy    *string        `gorm:"column:affiliation" json:"affiliation"`
	AffiliationsCount    int            `gorm:"column:affiliations_count;not null;default:0" json:"affiliations_count"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`

	Latitude  *decimal.Decimal `gorm:"-" json:"latitude"`
	Longitude *decimal.Decimal `gorm:"-" json:"longitude"`

	State         *State         `gorm:"foreignKey:StateID;references:ID" json:"state,omitempty"`
	Organizations []Organization `gorm:"many2many:affiliations;foreignKey:ProjectID;joinForeignKey:ProjectID;references:OrganizationID;joinReferences:OrganizationID" json:"organizations,omitempty"`
	Photos        []Photo        `gorm:"foreignKey:ProjectID;references:ProjectID" json:"photos,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == uuid.Nil {
		p.ProjectID = uuid.New()
	}
	return nil
}

// AfterFind restores the transient coordinates from the stored point.
func (p *Project) AfterFind(tx *gorm.DB) error {
	if !p.Lonlat.IsZero() {
		lat, lon := p.Lonlat.Lat(), p.Lonlat.Lon()
		p.Latitude, p.Longitude = &lat, &lon
	}
	return nil
}

// Title is the display heading of the project.
func (p *Project) Title() string {
	return fmt.Sprintf("Project on %s", p.StreamName)
}

// AffiliationLabel prefers the legacy free-text affiliation and falls back to the names of
// the loaded organizations.
func (p *Project) AffiliationLabel() string {
	if p.AffiliationLegacy != nil && strings.TrimSpace(*p.AffiliationLegacy) != "" {
		return strings.TrimSpace(*p.AffiliationLegacy)
	}
	names := make([]string, 0, len(p.Organizations))
	for _, o := range p.Organizations {
		names = append(names, o.Name)
	}
	return strings.Join(names, ", ")
}

// Byline describes when, and with whom, the project was implemented.
func (p *Project) Byline() string {
	return Byline(time.Time(p.ImplementationDate), p.AffiliationLabel())
}

// Byline renders the implementation sentence; label may be empty.
func Byline(implemented time.Time, label string) string {
	date := implemented.Format(bylineDateLayout)
	if label == "" {
		return fmt.Sprintf("Implemented on %s", date)
	}
	return fmt.Sprintf("Implemented on %s in affiliation with %s", date, label)
}

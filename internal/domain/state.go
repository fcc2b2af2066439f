package domain

import (
	"time"

	"gorm.io/datatypes"
)

// State is one administrative boundary of the region catalog. Geom holds a GeoJSON
// Polygon or MultiPolygon in WGS84.
type State struct {
	ID           uint           `gorm:"column:id;primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Abbreviation string         `gorm:"column:abbreviation;type:varchar(8)" json:"abbreviation"`
	Geom         datatypes.JSON `gorm:"column:geom;not null" json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (State) TableName() string {
	return "states"
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The railway location hierarchy: zone -> division -> station. Installations
// reference these read-only; the core only validates existence.

type Zone struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Code      string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Region    string         `gorm:"size:100" json:"region"`
	IsActive  bool           `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Division struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Code      string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	ZoneID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"zoneId"`
	Zone      Zone           `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	IsActive  bool           `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Station struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"size:100;not null" json:"name"`
	Code       string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	DivisionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"divisionId"`
	Division   Division       `gorm:"foreignKey:DivisionID" json:"division,omitempty"`
	IsActive   bool           `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) (err error) {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return
}

func (d *Division) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

func (s *Station) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Installation binds one QR-coded unit to a physical track location. The
// unique index on QRCodeID is the concurrency primitive: the second of two
// racing installs loses to a constraint violation, surfaced as a conflict.
type Installation struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"qrCodeId"`
	QRCode            QRCode         `gorm:"foreignKey:QRCodeID" json:"qrCode,omitempty"`
	ZoneID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"zoneId"`
	DivisionID        *uuid.UUID     `gorm:"type:uuid;index" json:"divisionId,omitempty"`
	StationID         *uuid.UUID     `gorm:"type:uuid;index" json:"stationId,omitempty"`
	TrackSection      string         `gorm:"size:100;not null" json:"trackSection"`
	KilometerPost     string         `gorm:"size:20" json:"kilometerPost,omitempty"`
	Latitude          float64        `gorm:"not null" json:"latitude"`
	Longitude         float64        `gorm:"not null" json:"longitude"`
	InstallationDate  time.Time      `gorm:"not null;index" json:"installationDate"`
	InstalledBy       uuid.UUID      `gorm:"type:uuid;not null" json:"installedBy"`
	Status            string         `gorm:"size:20;not null;default:installed;index" json:"status"`
	WarrantyStartDate time.Time      `json:"warrantyStartDate"`
	WarrantyEndDate   time.Time      `json:"warrantyEndDate"`
	InstallationType  string         `gorm:"size:50" json:"installationType,omitempty"`
	Remarks           string         `gorm:"size:255" json:"remarks,omitempty"`
	UpdatedBy         *uuid.UUID     `gorm:"type:uuid" json:"updatedBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (i *Installation) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QRCode is the per-unit identity record. The code string is immutable once
// generated; (FittingBatchID, SequenceNumber) is unique and sequences run
// contiguously from 1 within a batch. Records are never deleted — terminal
// statuses are permanent markers.
type QRCode struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code              string         `gorm:"size:100;uniqueIndex;not null" json:"code"`
	FittingBatchID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_qr_batch_seq" json:"fittingBatchId"`
	FittingBatch      FittingBatch   `gorm:"foreignKey:FittingBatchID" json:"fittingBatch,omitempty"`
	SequenceNumber    int            `gorm:"not null;uniqueIndex:idx_qr_batch_seq" json:"sequenceNumber"`
	Status            string         `gorm:"size:20;not null;default:generated;index" json:"status"`
	MarkingMachineID  string         `gorm:"size:50" json:"markingMachineId"`
	MarkingOperatorID *uuid.UUID     `gorm:"type:uuid" json:"markingOperatorId,omitempty"`
	PrintQualityScore *float64       `json:"printQualityScore,omitempty"`
	VerificationNote  string         `gorm:"size:255" json:"verificationNote,omitempty"`
	VerifiedAt        *time.Time     `json:"verifiedAt,omitempty"`
	VerifiedBy        *uuid.UUID     `gorm:"type:uuid" json:"verifiedBy,omitempty"`
	ImagePath         string         `gorm:"size:255" json:"imagePath,omitempty"`
	GeneratedAt       time.Time      `gorm:"not null" json:"generatedAt"`
	LastScannedAt     *time.Time     `json:"lastScannedAt,omitempty"`
	LastScannedBy     *uuid.UUID     `gorm:"type:uuid" json:"lastScannedBy,omitempty"`
	CreatedBy         *uuid.UUID     `gorm:"type:uuid" json:"createdBy,omitempty"`
	UpdatedBy         *uuid.UUID     `gorm:"type:uuid" json:"updatedBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (q *QRCode) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return
}

// ScanLog is the append-only record of every scan of a code in the field.
type ScanLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"qrCodeId"`
	Code         string         `gorm:"size:100;not null" json:"code"`
	ScannedBy    uuid.UUID      `gorm:"type:uuid;not null" json:"scannedBy"`
	ScanPurpose  string         `gorm:"size:50;not null;default:general" json:"scanPurpose"`
	ScanLocation string         `gorm:"size:100" json:"scanLocation"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	DeviceInfo   datatypes.JSON `gorm:"type:jsonb" json:"deviceInfo,omitempty"`
	IPAddress    string         `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent    string         `gorm:"size:255" json:"userAgent,omitempty"`
	ScanDate     time.Time      `gorm:"not null;index" json:"scanDate"`
	Remarks      string         `gorm:"size:255" json:"remarks,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (s *ScanLog) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

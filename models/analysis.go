package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisReport is the opaque output of the external AI-analysis service.
// The core persists it linked to a QR code and never interprets the payload.
type AnalysisReport struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"qrCodeId"`
	RiskScore   float64        `gorm:"not null" json:"riskScore"`
	Summary     string         `gorm:"size:1000" json:"summary,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	ModelName   string         `gorm:"size:100" json:"modelName,omitempty"`
	GeneratedAt time.Time      `gorm:"not null;index" json:"generatedAt"`
	CreatedBy   *uuid.UUID     `gorm:"type:uuid" json:"createdBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (a *AnalysisReport) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

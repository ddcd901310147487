package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FittingBatch statuses. shipped and rejected are terminal; a batch is never
// hard-deleted.
const (
	BatchManufacturing = "manufacturing"
	BatchManufactured  = "manufactured"
	BatchQualityCheck  = "quality_check"
	BatchApproved      = "approved"
	BatchRejected      = "rejected"
	BatchShipped       = "shipped"
)

// FittingBatch is one manufactured lot of identical fitting units sharing a
// supply-order line item.
type FittingBatch struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BatchNumber       string         `gorm:"size:50;uniqueIndex;not null" json:"batchNumber"`
	SupplyOrderRef    string         `gorm:"size:50" json:"supplyOrderRef"`
	ManufacturerRef   string         `gorm:"size:100" json:"manufacturerRef"`
	Quantity          int            `gorm:"not null" json:"quantity"`
	ManufacturingDate JSONTime       `gorm:"not null" json:"manufacturingDate"`
	QualityGrade      string         `gorm:"size:10" json:"qualityGrade"`
	Status            string         `gorm:"size:20;not null;default:manufacturing" json:"status"`
	QRCodesGenerated  int            `gorm:"default:0" json:"qrCodesGenerated"`
	QRGenerationDate  *time.Time     `json:"qrGenerationDate,omitempty"`
	CreatedBy         *uuid.UUID     `gorm:"type:uuid" json:"createdBy,omitempty"`
	UpdatedBy         *uuid.UUID     `gorm:"type:uuid" json:"updatedBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *FittingBatch) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// AllowsGeneration reports whether QR codes may still be generated for the
// batch. Shipped and rejected batches refuse generation.
func (b *FittingBatch) AllowsGeneration() bool {
	switch b.Status {
	case BatchManufactured, BatchQualityCheck, BatchApproved:
		return true
	}
	return false
}

// ValidBatchStatus reports whether s is a known batch status.
func ValidBatchStatus(s string) bool {
	switch s {
	case BatchManufacturing, BatchManufactured, BatchQualityCheck,
		BatchApproved, BatchRejected, BatchShipped:
		return true
	}
	return false
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event types tracked per QR code.
const (
	EventScan        = "scan"
	EventInspection  = "inspection"
	EventMaintenance = "maintenance"
)

// EventPointer is the secondary index giving "most recent event of type T
// for code C" in a single read. One row per (code, type), upserted on every
// append so lifecycle decisions never scan the event tables.
type EventPointer struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_event_ptr" json:"qrCodeId"`
	EventType string     `gorm:"size:20;not null;uniqueIndex:idx_event_ptr" json:"eventType"`
	EventID   uuid.UUID  `gorm:"type:uuid;not null" json:"eventId"`
	EventTime time.Time  `gorm:"not null" json:"eventTime"`
	NextDue   *time.Time `json:"nextDue,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (p *EventPointer) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

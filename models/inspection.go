package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Inspection sub-lifecycle. An inspection is opened in_progress and closed
// with a recommendation; the two phases are separate writes.
const (
	InspectionInProgress = "in_progress"
	InspectionCompleted  = "completed"
)

// Recommendations accepted when completing an inspection.
const (
	RecommendContinueService      = "continue_service"
	RecommendScheduleMaintenance  = "schedule_maintenance"
	RecommendImmediateReplacement = "immediate_replacement"
	RecommendMonitorClosely       = "monitor_closely"
)

type Inspection struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"qrCodeId"`
	InspectorID        uuid.UUID      `gorm:"type:uuid;not null" json:"inspectorId"`
	InspectionType     string         `gorm:"size:50;not null" json:"inspectionType"`
	InspectionDate     time.Time      `gorm:"not null;index" json:"inspectionDate"`
	InspectionLocation string         `gorm:"size:100" json:"inspectionLocation,omitempty"`
	Latitude           *float64       `json:"latitude,omitempty"`
	Longitude          *float64       `json:"longitude,omitempty"`
	VisualCondition    string         `gorm:"size:50;not null" json:"visualCondition"`
	ChecklistData      datatypes.JSON `gorm:"type:jsonb" json:"checklistData,omitempty"`
	Photos             pq.StringArray `gorm:"type:text[]" json:"photos,omitempty"`
	Status             string         `gorm:"size:20;not null;default:in_progress" json:"status"`
	Recommendation     string         `gorm:"size:50" json:"recommendation,omitempty"`
	NextInspectionDue  *time.Time     `json:"nextInspectionDue,omitempty"`
	WeatherConditions  datatypes.JSON `gorm:"type:jsonb" json:"weatherConditions,omitempty"`
	Temperature        *float64       `json:"temperature,omitempty"`
	Humidity           *float64       `json:"humidity,omitempty"`
	Remarks            string         `gorm:"size:500" json:"remarks,omitempty"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
	CompletedBy        *uuid.UUID     `gorm:"type:uuid" json:"completedBy,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func (i *Inspection) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// ValidRecommendation reports whether r may close an inspection.
func ValidRecommendation(r string) bool {
	switch r {
	case RecommendContinueService, RecommendScheduleMaintenance,
		RecommendImmediateReplacement, RecommendMonitorClosely:
		return true
	}
	return false
}

type MaintenanceRecord struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QRCodeID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"qrCodeId"`
	PerformedBy        uuid.UUID      `gorm:"type:uuid;not null" json:"performedBy"`
	MaintenanceType    string         `gorm:"size:50;not null" json:"maintenanceType"`
	MaintenanceDate    time.Time      `gorm:"not null;index" json:"maintenanceDate"`
	WorkDescription    string         `gorm:"size:1000;not null" json:"workDescription"`
	PartsReplaced      datatypes.JSON `gorm:"type:jsonb" json:"partsReplaced,omitempty"`
	PartsUsed          datatypes.JSON `gorm:"type:jsonb" json:"partsUsed,omitempty"`
	Cost               *float64       `json:"cost,omitempty"`
	BeforePhotos       pq.StringArray `gorm:"type:text[]" json:"beforePhotos,omitempty"`
	AfterPhotos        pq.StringArray `gorm:"type:text[]" json:"afterPhotos,omitempty"`
	Status             string         `gorm:"size:20;not null;default:completed" json:"status"`
	NextMaintenanceDue *time.Time     `json:"nextMaintenanceDue,omitempty"`
	QualityCheckPassed *bool          `json:"qualityCheckPassed,omitempty"`
	QualityCheckedBy   *uuid.UUID     `gorm:"type:uuid" json:"qualityCheckedBy,omitempty"`
	QualityCheckDate   *time.Time     `json:"qualityCheckDate,omitempty"`
	WorkOrderNumber    string         `gorm:"size:50" json:"workOrderNumber,omitempty"`
	Remarks            string         `gorm:"size:500" json:"remarks,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func (m *MaintenanceRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

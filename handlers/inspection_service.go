package handlers

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

// InspectionService runs the two-phase inspection sub-lifecycle: an
// inspection opens in_progress and later completes with a recommendation.
// The two writes are deliberately separate; field inspections span hours.
type InspectionService struct {
	db       *gorm.DB
	events   *EventService
	installs *InstallationService
}

func NewInspectionService(db *gorm.DB, events *EventService, installs *InstallationService) *InspectionService {
	return &InspectionService{db: db, events: events, installs: installs}
}

// Create opens an inspection against an existing QR record.
func (s *InspectionService) Create(actor uuid.UUID, insp *models.Inspection) error {
	var count int64
	if err := s.db.Model(&models.QRCode{}).Where("id = ?", insp.QRCodeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NotFoundError("qr code", insp.QRCodeID.String())
	}
	if insp.InspectionType == "" {
		return models.ValidationError("inspectionType", "inspection type is required")
	}
	if insp.VisualCondition == "" {
		return models.ValidationError("visualCondition", "visual condition is required")
	}

	insp.InspectorID = actor
	insp.Status = models.InspectionInProgress
	if insp.InspectionDate.IsZero() {
		insp.InspectionDate = time.Now().UTC()
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(insp).Error; err != nil {
			return err
		}
		return s.events.RecordInspection(tx, insp)
	})
}

// CompleteRequest closes an inspection with its recommendation.
type CompleteRequest struct {
	Recommendation    string     `json:"recommendation"`
	NextInspectionDue *time.Time `json:"nextInspectionDue,omitempty"`
	Remarks           string     `json:"remarks,omitempty"`
}

// Complete closes an in_progress inspection. A recommendation of
// schedule_maintenance or immediate_replacement drives the bound
// installation to maintenance_due when that edge is legal; the completion
// itself never fails on propagation.
func (s *InspectionService) Complete(actor uuid.UUID, id uuid.UUID, req CompleteRequest) (*models.Inspection, error) {
	if !models.ValidRecommendation(req.Recommendation) {
		return nil, models.ValidationError("recommendation", "invalid recommendation %q", req.Recommendation)
	}

	var insp models.Inspection
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&insp, "id = ?", id).Error; err != nil {
			return models.TranslateDBError(err, "inspection", "")
		}
		if insp.Status != models.InspectionInProgress {
			return models.ConflictError("inspection_phase", "inspection is not in progress")
		}

		now := time.Now().UTC()
		insp.Status = models.InspectionCompleted
		insp.Recommendation = req.Recommendation
		insp.NextInspectionDue = req.NextInspectionDue
		if req.Remarks != "" {
			insp.Remarks = req.Remarks
		}
		insp.CompletedAt = &now
		insp.CompletedBy = &actor

		if err := tx.Model(&insp).
			Select("status", "recommendation", "next_inspection_due", "remarks", "completed_at", "completed_by").
			Updates(&insp).Error; err != nil {
			return err
		}
		return s.events.RecordInspection(tx, &insp)
	})
	if err != nil {
		return nil, err
	}

	if req.Recommendation == models.RecommendScheduleMaintenance ||
		req.Recommendation == models.RecommendImmediateReplacement {
		if _, err := s.installs.UpdateStatusForCode(actor, insp.QRCodeID, lifecycle.StatusMaintenanceDue,
			"inspection recommendation: "+req.Recommendation); err != nil {
			log.Printf("inspection %s: maintenance_due propagation skipped: %v", insp.ID, err)
		}
	}
	return &insp, nil
}

// List pages inspections newest-first, optionally filtered by code or phase.
func (s *InspectionService) List(codeID *uuid.UUID, status string, p models.ListParams) ([]models.Inspection, int64, error) {
	q := s.db.Model(&models.Inspection{})
	if codeID != nil {
		q = q.Where("qr_code_id = ?", *codeID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Inspection
	err := q.Order("inspection_date DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

// MaintenanceService records completed maintenance work against a code.
type MaintenanceService struct {
	db       *gorm.DB
	events   *EventService
	installs *InstallationService
}

func NewMaintenanceService(db *gorm.DB, events *EventService, installs *InstallationService) *MaintenanceService {
	return &MaintenanceService{db: db, events: events, installs: installs}
}

// Create appends a maintenance record. returnToService moves a
// maintenance_due installation back to in_service once the record commits.
func (s *MaintenanceService) Create(actor uuid.UUID, m *models.MaintenanceRecord, returnToService bool) error {
	var count int64
	if err := s.db.Model(&models.QRCode{}).Where("id = ?", m.QRCodeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NotFoundError("qr code", m.QRCodeID.String())
	}
	if m.WorkDescription == "" {
		return models.ValidationError("workDescription", "work description is required")
	}
	if m.Cost != nil && *m.Cost < 0 {
		return models.ValidationError("cost", "cost cannot be negative")
	}

	m.PerformedBy = actor
	if m.MaintenanceDate.IsZero() {
		m.MaintenanceDate = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = "completed"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return s.events.RecordMaintenance(tx, m)
	})
	if err != nil {
		return err
	}

	if returnToService {
		if _, err := s.installs.UpdateStatusForCode(actor, m.QRCodeID, lifecycle.StatusInService,
			"maintenance completed: "+m.MaintenanceType); err != nil {
			log.Printf("maintenance %s: in_service propagation skipped: %v", m.ID, err)
		}
	}
	return nil
}

// List pages maintenance records newest-first.
func (s *MaintenanceService) List(codeID *uuid.UUID, p models.ListParams) ([]models.MaintenanceRecord, int64, error) {
	q := s.db.Model(&models.MaintenanceRecord{})
	if codeID != nil {
		q = q.Where("qr_code_id = ?", *codeID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.MaintenanceRecord
	err := q.Order("maintenance_date DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

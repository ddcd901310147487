package handlers

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"p9e.in/qrtrack/models"
)

// EventService is the append-only history attached to a QR record. Every
// append upserts a (code, event type) pointer row so "most recent event"
// queries never scan or sort the event tables.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// LogScan appends a scan entry and stamps the record's last-scan fields in
// one transaction.
func (s *EventService) LogScan(actor uuid.UUID, scan *models.ScanLog) error {
	var rec models.QRCode
	if err := s.db.First(&rec, "code = ?", scan.Code).Error; err != nil {
		return models.TranslateDBError(err, "qr code", "")
	}
	scan.QRCodeID = rec.ID
	scan.ScannedBy = actor
	if scan.ScanDate.IsZero() {
		scan.ScanDate = time.Now().UTC()
	}
	if scan.ScanPurpose == "" {
		scan.ScanPurpose = "general"
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(scan).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.QRCode{}).Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"last_scanned_at": scan.ScanDate,
				"last_scanned_by": actor,
			}).Error; err != nil {
			return err
		}
		return s.advancePointer(tx, rec.ID, models.EventScan, scan.ID, scan.ScanDate, nil)
	})
}

// RecordInspection advances the inspection pointer after a create or
// complete write. nextDue carries the completed inspection's follow-up date.
func (s *EventService) RecordInspection(tx *gorm.DB, insp *models.Inspection) error {
	return s.advancePointer(tx, insp.QRCodeID, models.EventInspection, insp.ID, insp.InspectionDate, insp.NextInspectionDue)
}

// RecordMaintenance advances the maintenance pointer; nextDue feeds the
// "is maintenance due" check without a table scan.
func (s *EventService) RecordMaintenance(tx *gorm.DB, m *models.MaintenanceRecord) error {
	return s.advancePointer(tx, m.QRCodeID, models.EventMaintenance, m.ID, m.MaintenanceDate, m.NextMaintenanceDue)
}

// advancePointer upserts the last-event pointer for (code, type). The
// composite unique index makes the upsert race-safe.
func (s *EventService) advancePointer(tx *gorm.DB, codeID uuid.UUID, eventType string, eventID uuid.UUID, eventTime time.Time, nextDue *time.Time) error {
	ptr := models.EventPointer{
		QRCodeID:  codeID,
		EventType: eventType,
		EventID:   eventID,
		EventTime: eventTime,
		NextDue:   nextDue,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "qr_code_id"}, {Name: "event_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "event_time", "next_due", "updated_at"}),
	}).Create(&ptr).Error
}

// LastEvent returns the pointer for (code, type), or nil when no event of
// that type has been recorded.
func (s *EventService) LastEvent(codeID uuid.UUID, eventType string) (*models.EventPointer, error) {
	var ptr models.EventPointer
	err := s.db.First(&ptr, "qr_code_id = ? AND event_type = ?", codeID, eventType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ptr, nil
}

// MaintenanceDue reports whether the last maintenance event's follow-up date
// has passed. Codes with no maintenance history are not due.
func (s *EventService) MaintenanceDue(codeID uuid.UUID, now time.Time) (bool, error) {
	ptr, err := s.LastEvent(codeID, models.EventMaintenance)
	if err != nil || ptr == nil || ptr.NextDue == nil {
		return false, err
	}
	return !now.Before(*ptr.NextDue), nil
}

// ListScans pages a code's scan history newest-first.
func (s *EventService) ListScans(codeID uuid.UUID, p models.ListParams) ([]models.ScanLog, int64, error) {
	q := s.db.Model(&models.ScanLog{}).Where("qr_code_id = ?", codeID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var scans []models.ScanLog
	err := q.Order("scan_date DESC").Offset(p.Offset()).Limit(p.Limit).Find(&scans).Error
	return scans, total, err
}

package handlers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
	"p9e.in/qrtrack/utils"
)

// InstallationService enforces the 1:1 binding between a QR code record and
// a physical installation, and keeps their statuses in lockstep.
type InstallationService struct {
	db        *gorm.DB
	cfg       *config.Settings
	integrity *IntegrityValidator
	codeLocks *keyedMutex
}

func NewInstallationService(db *gorm.DB, cfg *config.Settings) *InstallationService {
	return &InstallationService{
		db:        db,
		cfg:       cfg,
		integrity: NewIntegrityValidator(db),
		codeLocks: newKeyedMutex(),
	}
}

// InstallRequest is the payload binding a verified code to a track location.
type InstallRequest struct {
	QRCodeID         uuid.UUID        `json:"qrCodeId"`
	ZoneID           uuid.UUID        `json:"zoneId"`
	DivisionID       *uuid.UUID       `json:"divisionId,omitempty"`
	StationID        *uuid.UUID       `json:"stationId,omitempty"`
	TrackSection     string           `json:"trackSection"`
	KilometerPost    string           `json:"kilometerPost,omitempty"`
	Coordinates      utils.Coordinate `json:"installationCoordinates"`
	InstallationType string           `json:"installationType,omitempty"`
	Remarks          string           `json:"remarks,omitempty"`
}

// Install creates the installation for a verified QR record and moves the
// record to installed, both in one transaction. Two racing installs for the
// same code resolve to one success and one conflict: the per-code lock
// serialises in-process callers, the unique index on qr_code_id catches the
// rest.
func (s *InstallationService) Install(actor uuid.UUID, req InstallRequest) (*models.Installation, error) {
	if req.TrackSection == "" {
		return nil, models.ValidationError("trackSection", "track section is required")
	}
	if err := utils.ValidateCoordinate(req.Coordinates.Lat, req.Coordinates.Lng); err != nil {
		return nil, models.ValidationError("installationCoordinates", "%v", err)
	}
	if vr := s.integrity.LocationExists(s.db, req.ZoneID, req.DivisionID, req.StationID); !vr.OK {
		return nil, vr.Err()
	}

	unlock := s.codeLocks.Lock(req.QRCodeID.String())
	defer unlock()

	var inst models.Installation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec models.QRCode
		if err := tx.First(&rec, "id = ?", req.QRCodeID).Error; err != nil {
			return models.TranslateDBError(err, "qr code", "")
		}
		if rec.Status != lifecycle.StatusVerified {
			return models.ConflictError("install_precondition",
				"qr code must be verified before installation, current status %s", rec.Status)
		}

		var existing int64
		if err := tx.Model(&models.Installation{}).Where("qr_code_id = ?", rec.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.ConflictError("installation_unique", "qr code %s is already installed", rec.Code)
		}

		now := time.Now().UTC()
		inst = models.Installation{
			QRCodeID:          rec.ID,
			ZoneID:            req.ZoneID,
			DivisionID:        req.DivisionID,
			StationID:         req.StationID,
			TrackSection:      req.TrackSection,
			KilometerPost:     req.KilometerPost,
			Latitude:          req.Coordinates.Lat,
			Longitude:         req.Coordinates.Lng,
			InstallationDate:  now,
			InstalledBy:       actor,
			Status:            lifecycle.StatusInstalled,
			WarrantyStartDate: now,
			WarrantyEndDate:   now.AddDate(0, s.cfg.WarrantyMonths, 0),
			InstallationType:  req.InstallationType,
			Remarks:           req.Remarks,
		}
		if err := tx.Create(&inst).Error; err != nil {
			return models.TranslateDBError(err, "installation", "installation_unique")
		}
		return tx.Model(&models.QRCode{}).Where("id = ?", rec.ID).
			Update("status", lifecycle.StatusInstalled).Error
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// UpdateStatus moves an installation through its operational lifecycle and
// propagates the same status to the bound QR record atomically. A rejected
// edge changes neither row.
func (s *InstallationService) UpdateStatus(actor uuid.UUID, installationID uuid.UUID, newStatus, remarks string) (*models.Installation, error) {
	if !lifecycle.Operational(newStatus) {
		return nil, models.ValidationError("status", "invalid installation status %q", newStatus)
	}

	var inst models.Installation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inst, "id = ?", installationID).Error; err != nil {
			return models.TranslateDBError(err, "installation", "")
		}
		if vr := s.integrity.Transition(inst.Status, newStatus); !vr.OK {
			return vr.Err()
		}

		updates := map[string]interface{}{
			"status":     newStatus,
			"updated_by": actor,
		}
		if remarks != "" {
			updates["remarks"] = remarks
		}
		if err := tx.Model(&inst).Updates(updates).Error; err != nil {
			return err
		}
		inst.Status = newStatus

		// dual write: the QR record must always mirror the installation
		res := tx.Model(&models.QRCode{}).Where("id = ?", inst.QRCodeID).Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.IntegrityError("status_propagation",
				"installation %s references missing qr code %s", inst.ID, inst.QRCodeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// UpdateStatusForCode resolves the installation bound to a QR record and
// delegates to UpdateStatus. Used when events (inspection outcomes,
// completed maintenance) drive the lifecycle.
func (s *InstallationService) UpdateStatusForCode(actor uuid.UUID, qrCodeID uuid.UUID, newStatus, remarks string) (*models.Installation, error) {
	var inst models.Installation
	if err := s.db.First(&inst, "qr_code_id = ?", qrCodeID).Error; err != nil {
		return nil, models.TranslateDBError(err, "installation", "")
	}
	return s.UpdateStatus(actor, inst.ID, newStatus, remarks)
}

// ListFilter narrows installation listings.
type ListFilter struct {
	ZoneID       *uuid.UUID
	DivisionID   *uuid.UUID
	StationID    *uuid.UUID
	Status       string
	TrackSection string
}

// List pages installations newest-first.
func (s *InstallationService) List(f ListFilter, p models.ListParams) ([]models.Installation, int64, error) {
	q := s.db.Model(&models.Installation{})
	if f.ZoneID != nil {
		q = q.Where("zone_id = ?", *f.ZoneID)
	}
	if f.DivisionID != nil {
		q = q.Where("division_id = ?", *f.DivisionID)
	}
	if f.StationID != nil {
		q = q.Where("station_id = ?", *f.StationID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TrackSection != "" {
		q = q.Where("track_section ILIKE ?", "%"+f.TrackSection+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Installation
	err := q.Order("installation_date DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

// Get loads one installation.
func (s *InstallationService) Get(id uuid.UUID) (*models.Installation, error) {
	var inst models.Installation
	if err := s.db.Preload("QRCode").First(&inst, "id = ?", id).Error; err != nil {
		return nil, models.TranslateDBError(err, "installation", "")
	}
	return &inst, nil
}

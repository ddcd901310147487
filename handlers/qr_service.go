package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
	"p9e.in/qrtrack/utils"
)

// QRService owns the set of codes belonging to a fitting batch: bulk
// generation with contiguous sequence numbers, verification, and the
// non-operational status changes (printing, reprints).
type QRService struct {
	db         *gorm.DB
	cfg        *config.Settings
	gen        *utils.Generator
	store      *FileStore
	integrity  *IntegrityValidator
	batchLocks *keyedMutex
}

func NewQRService(db *gorm.DB, cfg *config.Settings, store *FileStore) *QRService {
	return &QRService{
		db:         db,
		cfg:        cfg,
		gen:        utils.NewGenerator(cfg.QRPrefix),
		store:      store,
		integrity:  NewIntegrityValidator(db),
		batchLocks: newKeyedMutex(),
	}
}

// UnitResult reports the outcome for a single unit of a bulk generation.
type UnitResult struct {
	SequenceNumber int    `json:"sequenceNumber"`
	Code           string `json:"code,omitempty"`
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
}

// BatchGenerationResult is the per-unit list plus aggregate summary every
// bulk generation returns. A mid-bulk failure leaves the committed prefix in
// place and reports it here; it is never silently half-written.
type BatchGenerationResult struct {
	BatchID       uuid.UUID       `json:"batchId"`
	Requested     int             `json:"requested"`
	Generated     int             `json:"generated"`
	Failed        int             `json:"failed"`
	StartSequence int             `json:"startSequence"`
	Units         []UnitResult    `json:"units"`
	QRCodes       []models.QRCode `json:"qrCodes"`
}

// GenerateForBatch creates quantity QR code records for a batch,
// continuing from the batch's prior max sequence. Generation for one batch
// is mutually exclusive; chunks commit independently so a failure partway
// leaves a consistent, resumable prefix.
func (s *QRService) GenerateForBatch(actor *uuid.UUID, batchID uuid.UUID, quantity int, machineID string, operatorID *uuid.UUID) (*BatchGenerationResult, error) {
	if quantity < 1 || quantity > s.cfg.MaxBatchQuantity {
		return nil, models.ValidationError("quantity", "quantity must be between 1 and %d", s.cfg.MaxBatchQuantity)
	}

	unlock := s.batchLocks.Lock(batchID.String())
	defer unlock()

	batch, vr := s.integrity.BatchExists(s.db, batchID)
	if !vr.OK {
		return nil, vr.Err()
	}
	if !batch.AllowsGeneration() {
		return nil, models.ConflictError("batch_state", "batch %s does not allow code generation in status %s", batch.BatchNumber, batch.Status)
	}

	startSeq, err := s.nextSequence(batchID)
	if err != nil {
		return nil, err
	}
	if startSeq-1+quantity > batch.Quantity {
		return nil, models.ConflictError("batch_capacity",
			"batch holds %d units, %d codes exist, cannot generate %d more",
			batch.Quantity, startSeq-1, quantity)
	}

	result := &BatchGenerationResult{
		BatchID:       batchID,
		Requested:     quantity,
		StartSequence: startSeq,
	}

	chunk := s.cfg.GenerationChunk
	for offset := 0; offset < quantity; offset += chunk {
		n := chunk
		if offset+n > quantity {
			n = quantity - offset
		}
		records, units, err := s.generateChunk(actor, batchID, startSeq+offset, n, machineID, operatorID)
		result.Units = append(result.Units, units...)
		result.QRCodes = append(result.QRCodes, records...)
		result.Generated += len(records)
		if err != nil {
			// The failed chunk rolled back as a unit; everything before it
			// is committed and resumable. Surface the failure per-unit, and
			// make sure the counter reflects the committed prefix.
			result.Failed = quantity - result.Generated
			log.Printf("batch %s generation aborted at sequence %d: %v", batchID, startSeq+offset+len(records), err)
			if result.Generated > 0 {
				if cerr := s.updateBatchCounters(actor, batchID); cerr != nil {
					return result, cerr
				}
			}
			return result, nil
		}
	}

	if err := s.updateBatchCounters(actor, batchID); err != nil {
		return result, err
	}
	return result, nil
}

// updateBatchCounters sets qr_codes_generated to the actual row count rather
// than incrementing, so a counter that drifted (a crash between a chunk
// commit and the counter write) heals on the next run. Callers hold the
// per-batch lock.
func (s *QRService) updateBatchCounters(actor *uuid.UUID, batchID uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.QRCode{}).
		Where("fitting_batch_id = ?", batchID).Count(&count).Error; err != nil {
		return models.IntegrityError("batch_counter", "count batch codes: %v", err)
	}
	err := s.db.Model(&models.FittingBatch{}).Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"qr_codes_generated": count,
			"qr_generation_date": time.Now().UTC(),
			"updated_by":         actor,
		}).Error
	if err != nil {
		return models.IntegrityError("batch_counter", "update batch counters: %v", err)
	}
	return nil
}

// generateChunk writes one chunk in a single transaction: all rows in the
// chunk commit together or not at all.
func (s *QRService) generateChunk(actor *uuid.UUID, batchID uuid.UUID, startSeq, n int, machineID string, operatorID *uuid.UUID) ([]models.QRCode, []UnitResult, error) {
	records := make([]models.QRCode, 0, n)
	units := make([]UnitResult, 0, n)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < n; i++ {
			seq := startSeq + i
			rec, err := s.generateOne(tx, actor, batchID, seq, machineID, operatorID)
			if err != nil {
				units = append(units, UnitResult{SequenceNumber: seq, Error: err.Error()})
				return err
			}
			records = append(records, *rec)
			units = append(units, UnitResult{SequenceNumber: seq, Code: rec.Code, OK: true})
		}
		return nil
	})
	if err != nil {
		// mark the whole rolled-back chunk as failed
		failed := make([]UnitResult, 0, len(units))
		for _, u := range units {
			u.OK = false
			u.Code = ""
			if u.Error == "" {
				u.Error = "rolled back with failing chunk"
			}
			failed = append(failed, u)
		}
		return nil, failed, err
	}
	return records, units, nil
}

// generateOne builds the payload, renders the PNG artifact and inserts the
// record. A fingerprint collision on insert retries generation once, then
// fails the chunk.
func (s *QRService) generateOne(tx *gorm.DB, actor *uuid.UUID, batchID uuid.UUID, seq int, machineID string, operatorID *uuid.UUID) (*models.QRCode, error) {
	for attempt := 0; attempt < 2; attempt++ {
		payload, err := s.gen.Generate(batchID.String(), seq)
		if err != nil {
			return nil, models.ValidationError("fittingBatchId", "%v", err)
		}
		if vr := s.integrity.CodeUnique(tx, payload); !vr.OK {
			continue
		}
		if vr := s.integrity.SequenceUnique(tx, batchID, seq); !vr.OK {
			return nil, vr.Err()
		}

		png, err := utils.RenderPNG(payload, s.cfg.QRImageSize)
		if err != nil {
			return nil, models.IntegrityError("image_render", "render QR image for sequence %d: %v", seq, err)
		}
		imagePath, err := s.store.SaveQRImage(payload, png)
		if err != nil {
			return nil, models.IntegrityError("image_store", "store QR image for sequence %d: %v", seq, err)
		}

		rec := models.QRCode{
			Code:              payload,
			FittingBatchID:    batchID,
			SequenceNumber:    seq,
			Status:            lifecycle.StatusGenerated,
			MarkingMachineID:  machineID,
			MarkingOperatorID: operatorID,
			ImagePath:         imagePath,
			GeneratedAt:       time.Now().UTC(),
			CreatedBy:         actor,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && attempt == 0 {
				continue
			}
			return nil, models.TranslateDBError(err, "qr code", "code_unique")
		}
		return &rec, nil
	}
	return nil, models.IntegrityError("fingerprint_collision", "could not produce a unique code for sequence %d", seq)
}

// nextSequence returns 1 + the batch's current max sequence, verifying the
// existing set is gap-free first.
func (s *QRService) nextSequence(batchID uuid.UUID) (int, error) {
	var maxSeq int64
	var count int64
	if err := s.db.Model(&models.QRCode{}).
		Where("fitting_batch_id = ?", batchID).
		Select("COALESCE(MAX(sequence_number), 0)").Scan(&maxSeq).Error; err != nil {
		return 0, models.IntegrityError("sequence_scan", "%v", err)
	}
	if err := s.db.Model(&models.QRCode{}).
		Where("fitting_batch_id = ?", batchID).Count(&count).Error; err != nil {
		return 0, models.IntegrityError("sequence_scan", "%v", err)
	}
	if maxSeq != count {
		return 0, models.IntegrityError("sequence_gap",
			"batch %s has %d codes but max sequence %d", batchID, count, maxSeq)
	}
	return int(maxSeq) + 1, nil
}

// MarkPrinted moves a record to printed, the only legal edge out of both
// generated and needs_reprint.
func (s *QRService) MarkPrinted(actor *uuid.UUID, id uuid.UUID) (*models.QRCode, error) {
	var rec models.QRCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return models.TranslateDBError(err, "qr code", "")
		}
		if vr := s.integrity.Transition(rec.Status, lifecycle.StatusPrinted); !vr.OK {
			return vr.Err()
		}
		rec.Status = lifecycle.StatusPrinted
		rec.UpdatedBy = actor
		return tx.Model(&rec).Select("status", "updated_by").Updates(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// VerifyRequest carries the outcome of the physical print-quality check.
type VerifyRequest struct {
	VerificationStatus string   `json:"verificationStatus"`
	PrintQualityScore  *float64 `json:"printQualityScore,omitempty"`
	Remarks            string   `json:"remarks,omitempty"`
}

// Verify records a verification outcome: verified, rejected or
// needs_reprint. Rejected is terminal; needs_reprint may only recover via
// MarkPrinted.
func (s *QRService) Verify(actor *uuid.UUID, id uuid.UUID, req VerifyRequest) (*models.QRCode, error) {
	var target string
	switch req.VerificationStatus {
	case "verified":
		target = lifecycle.StatusVerified
	case "rejected":
		target = lifecycle.StatusRejected
	case "needs_reprint":
		target = lifecycle.StatusNeedsReprint
	default:
		return nil, models.ValidationError("verificationStatus",
			"invalid verification status %q", req.VerificationStatus)
	}
	if req.PrintQualityScore != nil && (*req.PrintQualityScore < 0 || *req.PrintQualityScore > 1) {
		return nil, models.ValidationError("printQualityScore", "print quality score must be between 0 and 1")
	}

	var rec models.QRCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return models.TranslateDBError(err, "qr code", "")
		}
		if vr := s.integrity.Transition(rec.Status, target); !vr.OK {
			return vr.Err()
		}
		now := time.Now().UTC()
		rec.Status = target
		rec.PrintQualityScore = req.PrintQualityScore
		rec.VerificationNote = req.Remarks
		rec.VerifiedAt = &now
		rec.VerifiedBy = actor
		return tx.Model(&rec).Select("status", "print_quality_score", "verification_note", "verified_at", "verified_by").
			Updates(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// QRCodeDetail bundles a record with its related entities for scan lookups.
type QRCodeDetail struct {
	QRCode         models.QRCode             `json:"qrCode"`
	Batch          *models.FittingBatch      `json:"batch,omitempty"`
	Installation   *models.Installation      `json:"installation,omitempty"`
	LastInspection *models.Inspection        `json:"lastInspection,omitempty"`
	LastScan       *models.ScanLog           `json:"lastScan,omitempty"`
	LastService    *models.MaintenanceRecord `json:"lastMaintenance,omitempty"`
}

// GetByCode validates the wire format before any lookup, then loads the
// record and its related entities.
func (s *QRService) GetByCode(code string) (*QRCodeDetail, error) {
	if !utils.ValidatePayload(s.cfg.QRPrefix, code) {
		return nil, models.ValidationError("code", "malformed QR payload")
	}

	var rec models.QRCode
	if err := s.db.Preload("FittingBatch").First(&rec, "code = ?", code).Error; err != nil {
		return nil, models.TranslateDBError(err, "qr code", "")
	}

	detail := &QRCodeDetail{QRCode: rec, Batch: &rec.FittingBatch}

	var inst models.Installation
	if err := s.db.First(&inst, "qr_code_id = ?", rec.ID).Error; err == nil {
		detail.Installation = &inst
	}

	events := NewEventService(s.db)
	if ptr, err := events.LastEvent(rec.ID, models.EventInspection); err == nil && ptr != nil {
		var insp models.Inspection
		if err := s.db.First(&insp, "id = ?", ptr.EventID).Error; err == nil {
			detail.LastInspection = &insp
		}
	}
	if ptr, err := events.LastEvent(rec.ID, models.EventScan); err == nil && ptr != nil {
		var scan models.ScanLog
		if err := s.db.First(&scan, "id = ?", ptr.EventID).Error; err == nil {
			detail.LastScan = &scan
		}
	}
	if ptr, err := events.LastEvent(rec.ID, models.EventMaintenance); err == nil && ptr != nil {
		var m models.MaintenanceRecord
		if err := s.db.First(&m, "id = ?", ptr.EventID).Error; err == nil {
			detail.LastService = &m
		}
	}
	return detail, nil
}

// ListByBatch pages through a batch's codes in sequence order.
func (s *QRService) ListByBatch(batchID uuid.UUID, p models.ListParams) ([]models.QRCode, int64, error) {
	var total int64
	q := s.db.Model(&models.QRCode{}).Where("fitting_batch_id = ?", batchID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var codes []models.QRCode
	err := q.Order("sequence_number").Offset(p.Offset()).Limit(p.Limit).Find(&codes).Error
	return codes, total, err
}

// ExtractInfo decodes a payload without a database round trip.
func (s *QRService) ExtractInfo(code string) (*utils.PayloadInfo, error) {
	info, err := utils.ExtractPayload(s.cfg.QRPrefix, code)
	if err != nil {
		return nil, models.ValidationError("code", "%v", err)
	}
	return info, nil
}

package handlers

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

// ValidationResult carries the specific rule a mutating operation violated,
// so callers can produce precise error messages instead of booleans.
type ValidationResult struct {
	OK      bool
	Kind    string
	Rule    string
	Field   string
	Message string
}

func okResult() ValidationResult {
	return ValidationResult{OK: true}
}

// Err converts a failed result into the matching AppError; nil when OK.
func (v ValidationResult) Err() error {
	if v.OK {
		return nil
	}
	return &models.AppError{Kind: v.Kind, Rule: v.Rule, Field: v.Field, Message: v.Message}
}

// IntegrityValidator runs the cross-cutting checks every mutating path
// shares: uniqueness, referential existence, and transition legality.
type IntegrityValidator struct {
	db *gorm.DB
}

func NewIntegrityValidator(db *gorm.DB) *IntegrityValidator {
	return &IntegrityValidator{db: db}
}

// CodeUnique checks global uniqueness of a code string before insert.
func (iv *IntegrityValidator) CodeUnique(tx *gorm.DB, code string) ValidationResult {
	var count int64
	if err := tx.Model(&models.QRCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return ValidationResult{Kind: models.ErrKindIntegrity, Rule: "code_unique", Message: err.Error()}
	}
	if count > 0 {
		return ValidationResult{
			Kind: models.ErrKindConflict, Rule: "code_unique", Field: "code",
			Message: "code string already exists: " + code,
		}
	}
	return okResult()
}

// SequenceUnique checks (batch, sequence) uniqueness before insert.
func (iv *IntegrityValidator) SequenceUnique(tx *gorm.DB, batchID uuid.UUID, sequence int) ValidationResult {
	var count int64
	err := tx.Model(&models.QRCode{}).
		Where("fitting_batch_id = ? AND sequence_number = ?", batchID, sequence).
		Count(&count).Error
	if err != nil {
		return ValidationResult{Kind: models.ErrKindIntegrity, Rule: "sequence_unique", Message: err.Error()}
	}
	if count > 0 {
		return ValidationResult{
			Kind: models.ErrKindConflict, Rule: "sequence_unique", Field: "sequenceNumber",
			Message: "sequence number already assigned in batch",
		}
	}
	return okResult()
}

// Transition checks legality of a status edge via the lifecycle table.
func (iv *IntegrityValidator) Transition(from, to string) ValidationResult {
	if err := lifecycle.Check(from, to); err != nil {
		return ValidationResult{
			Kind: models.ErrKindConflict, Rule: "illegal_transition", Field: "status",
			Message: err.Error(),
		}
	}
	return okResult()
}

// BatchExists resolves a fitting batch reference.
func (iv *IntegrityValidator) BatchExists(tx *gorm.DB, id uuid.UUID) (*models.FittingBatch, ValidationResult) {
	var batch models.FittingBatch
	if err := tx.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ValidationResult{
				Kind: models.ErrKindNotFound, Rule: "batch_exists", Field: "fittingBatchId",
				Message: "fitting batch " + id.String() + " not found",
			}
		}
		return nil, ValidationResult{Kind: models.ErrKindIntegrity, Rule: "batch_exists", Message: err.Error()}
	}
	return &batch, okResult()
}

// LocationExists resolves the zone and, when given, division and station ids
// an installation references.
func (iv *IntegrityValidator) LocationExists(tx *gorm.DB, zoneID uuid.UUID, divisionID, stationID *uuid.UUID) ValidationResult {
	var count int64
	if err := tx.Model(&models.Zone{}).Where("id = ?", zoneID).Count(&count).Error; err == nil && count == 0 {
		return ValidationResult{
			Kind: models.ErrKindNotFound, Rule: "zone_exists", Field: "zoneId",
			Message: "zone " + zoneID.String() + " not found",
		}
	}
	if divisionID != nil {
		if err := tx.Model(&models.Division{}).Where("id = ?", *divisionID).Count(&count).Error; err == nil && count == 0 {
			return ValidationResult{
				Kind: models.ErrKindNotFound, Rule: "division_exists", Field: "divisionId",
				Message: "division " + divisionID.String() + " not found",
			}
		}
	}
	if stationID != nil {
		if err := tx.Model(&models.Station{}).Where("id = ?", *stationID).Count(&count).Error; err == nil && count == 0 {
			return ValidationResult{
				Kind: models.ErrKindNotFound, Rule: "station_exists", Field: "stationId",
				Message: "station " + stationID.String() + " not found",
			}
		}
	}
	return okResult()
}

// keyedMutex serialises operations per key: sequence allocation per batch,
// installation creation per code.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

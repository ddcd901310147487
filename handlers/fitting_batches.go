package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
)

type BatchHandler struct {
	db  *gorm.DB
	cfg *config.Settings
}

func NewBatchHandler(db *gorm.DB, cfg *config.Settings) *BatchHandler {
	return &BatchHandler{db: db, cfg: cfg}
}

// Create registers a manufacturing batch.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var batch models.FittingBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if batch.BatchNumber == "" {
		models.WriteError(w, models.ValidationError("batchNumber", "batch number is required"))
		return
	}
	if batch.Quantity < 1 {
		models.WriteError(w, models.ValidationError("quantity", "quantity must be at least 1"))
		return
	}
	if batch.Status == "" {
		batch.Status = models.BatchManufacturing
	}
	if !models.ValidBatchStatus(batch.Status) {
		models.WriteError(w, models.ValidationError("status", "invalid batch status %q", batch.Status))
		return
	}
	batch.CreatedBy = middleware.ActorID(r)

	if err := h.db.Create(&batch).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "batch number", "batch_number_unique"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"batch": batch})
}

// List pages batches newest-first, optionally filtered by status.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.db.Model(&models.FittingBatch{})
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	p := models.ParseListParams(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	var batches []models.FittingBatch
	if err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&batches).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, batches, models.NewPagination(p, total))
}

// Get loads one batch.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid batch id"))
		return
	}
	var batch models.FittingBatch
	if err := h.db.First(&batch, "id = ?", id).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "fitting batch", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batch": batch})
}

type batchStatusReq struct {
	Status       string `json:"status"`
	QualityGrade string `json:"qualityGrade,omitempty"`
}

// UpdateStatus advances a batch through quality-check and shipment. Shipped
// and rejected are terminal.
func (h *BatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid batch id"))
		return
	}
	var req batchStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if !models.ValidBatchStatus(req.Status) {
		models.WriteError(w, models.ValidationError("status", "invalid batch status %q", req.Status))
		return
	}

	var batch models.FittingBatch
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&batch, "id = ?", id).Error; err != nil {
			return models.TranslateDBError(err, "fitting batch", "")
		}
		if batch.Status == models.BatchShipped || batch.Status == models.BatchRejected {
			return models.ConflictError("batch_terminal", "batch %s is %s and cannot change status", batch.BatchNumber, batch.Status)
		}
		updates := map[string]interface{}{
			"status":     req.Status,
			"updated_by": middleware.ActorID(r),
		}
		if req.QualityGrade != "" {
			updates["quality_grade"] = req.QualityGrade
		}
		if err := tx.Model(&batch).Updates(updates).Error; err != nil {
			return err
		}
		batch.Status = req.Status
		return nil
	})
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batch": batch})
}

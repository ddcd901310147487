package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
)

type QRCodeHandler struct {
	db     *gorm.DB
	cfg    *config.Settings
	svc    *QRService
	events *EventService
	store  *FileStore
}

func NewQRCodeHandler(db *gorm.DB, cfg *config.Settings, svc *QRService, events *EventService, store *FileStore) *QRCodeHandler {
	return &QRCodeHandler{db: db, cfg: cfg, svc: svc, events: events, store: store}
}

type generateBatchReq struct {
	FittingBatchID    uuid.UUID  `json:"fittingBatchId"`
	Quantity          int        `json:"quantity"`
	MarkingMachineID  string     `json:"markingMachineId"`
	MarkingOperatorID *uuid.UUID `json:"markingOperatorId,omitempty"`
}

// GenerateBatch bulk-creates codes for a fitting batch.
func (h *QRCodeHandler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req generateBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if req.FittingBatchID == uuid.Nil {
		models.WriteError(w, models.ValidationError("fittingBatchId", "fitting batch id is required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.svc.GenerateForBatch(middleware.ActorID(r), req.FittingBatchID, req.Quantity, req.MarkingMachineID, req.MarkingOperatorID)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"qrCodes": result.QRCodes,
		"batchSummary": map[string]interface{}{
			"batchId":        result.BatchID,
			"requested":      result.Requested,
			"totalGenerated": result.Generated,
			"failed":         result.Failed,
			"startSequence":  result.StartSequence,
			"units":          result.Units,
		},
	})
}

// Get looks a scanned payload up together with its related entities.
func (h *QRCodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	detail, err := h.svc.GetByCode(code)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type scanReq struct {
	ScanPurpose  string            `json:"scanPurpose"`
	ScanLocation string            `json:"scanLocation"`
	Coordinates  *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"scanCoordinates,omitempty"`
	DeviceInfo json.RawMessage `json:"deviceInfo,omitempty"`
	Remarks    string          `json:"remarks,omitempty"`
}

// Scan appends a scan-log entry for a code.
func (h *QRCodeHandler) Scan(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req scanReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	scan := models.ScanLog{
		Code:         code,
		ScanPurpose:  req.ScanPurpose,
		ScanLocation: req.ScanLocation,
		DeviceInfo:   []byte(req.DeviceInfo),
		UserAgent:    r.UserAgent(),
		Remarks:      req.Remarks,
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		scan.IPAddress = host
	}
	if req.Coordinates != nil {
		scan.Latitude = &req.Coordinates.Lat
		scan.Longitude = &req.Coordinates.Lng
	}

	if err := h.events.LogScan(*actor, &scan); err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"scanLog": scan})
}

// Verify records the print-quality verification outcome for a record.
func (h *QRCodeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid qr code id"))
		return
	}
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}

	rec, err := h.svc.Verify(middleware.ActorID(r), id, req)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"qrCode": rec})
}

// MarkPrinted moves a record to printed after marking.
func (h *QRCodeHandler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid qr code id"))
		return
	}
	rec, err := h.svc.MarkPrinted(middleware.ActorID(r), id)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"qrCode": rec})
}

// Image serves the stored PNG artifact for a record.
func (h *QRCodeHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid qr code id"))
		return
	}
	var rec models.QRCode
	if err := h.db.First(&rec, "id = ?", id).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "qr code", ""))
		return
	}
	if rec.ImagePath == "" {
		models.WriteError(w, models.NotFoundError("qr image", id.String()))
		return
	}
	png, err := h.store.ReadQRImage(rec.ImagePath)
	if err != nil {
		models.WriteError(w, models.NotFoundError("qr image", id.String()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ListScans pages a code's scan history newest-first.
func (h *QRCodeHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var rec models.QRCode
	if err := h.db.First(&rec, "code = ?", code).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "qr code", ""))
		return
	}
	p := models.ParseListParams(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	scans, total, err := h.events.ListScans(rec.ID, p)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, scans, models.NewPagination(p, total))
}

// ListByBatch pages a batch's codes in sequence order.
func (h *QRCodeHandler) ListByBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(mux.Vars(r)["batchId"])
	if err != nil {
		models.WriteError(w, models.ValidationError("batchId", "invalid batch id"))
		return
	}
	p := models.ParseListParams(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	codes, total, err := h.svc.ListByBatch(batchID, p)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, codes, models.NewPagination(p, total))
}

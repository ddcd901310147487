package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
)

type MaintenanceHandler struct {
	cfg *config.Settings
	svc *MaintenanceService
}

func NewMaintenanceHandler(cfg *config.Settings, svc *MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{cfg: cfg, svc: svc}
}

type maintenanceCreateReq struct {
	models.MaintenanceRecord
	ReturnToService bool `json:"returnToService,omitempty"`
}

// Create appends a maintenance record; returnToService moves the
// installation back to in_service when set.
func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req maintenanceCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if req.QRCodeID == uuid.Nil {
		models.WriteError(w, models.ValidationError("qrCodeId", "qr code id is required"))
		return
	}
	if req.MaintenanceType == "" {
		models.WriteError(w, models.ValidationError("maintenanceType", "maintenance type is required"))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if err := h.svc.Create(*actor, &req.MaintenanceRecord, req.ReturnToService); err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"maintenanceRecord": req.MaintenanceRecord})
}

// List pages maintenance records, optionally filtered by code.
func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	var codeID *uuid.UUID
	if v := r.URL.Query().Get("qrCodeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			models.WriteError(w, models.ValidationError("qrCodeId", "invalid qr code id"))
			return
		}
		codeID = &id
	}
	p := models.ParseListParams(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	out, total, err := h.svc.List(codeID, p)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, out, models.NewPagination(p, total))
}

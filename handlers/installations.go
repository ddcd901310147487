package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
)

type InstallationHandler struct {
	cfg *config.Settings
	svc *InstallationService
}

func NewInstallationHandler(cfg *config.Settings, svc *InstallationService) *InstallationHandler {
	return &InstallationHandler{cfg: cfg, svc: svc}
}

// Create binds a verified QR record to a physical track location.
func (h *InstallationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if req.QRCodeID == uuid.Nil {
		models.WriteError(w, models.ValidationError("qrCodeId", "qr code id is required"))
		return
	}
	if req.ZoneID == uuid.Nil {
		models.WriteError(w, models.ValidationError("zoneId", "zone id is required"))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	inst, err := h.svc.Install(*actor, req)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"installation": inst})
}

// List pages installations with location and status filters.
func (h *InstallationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f ListFilter
	if v := q.Get("zoneId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.ZoneID = &id
		}
	}
	if v := q.Get("divisionId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.DivisionID = &id
		}
	}
	if v := q.Get("stationId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.StationID = &id
		}
	}
	f.Status = q.Get("status")
	f.TrackSection = q.Get("trackSection")

	p := models.ParseListParams(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	out, total, err := h.svc.List(f, p)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, out, models.NewPagination(p, total))
}

// Get loads one installation with its QR record.
func (h *InstallationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid installation id"))
		return
	}
	inst, err := h.svc.Get(id)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"installation": inst})
}

type statusUpdateReq struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks,omitempty"`
}

// UpdateStatus moves an installation through its lifecycle, propagating the
// status to the bound QR record.
func (h *InstallationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid installation id"))
		return
	}
	var req statusUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if req.Status == "" {
		models.WriteError(w, models.ValidationError("status", "status is required"))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	inst, err := h.svc.UpdateStatus(*actor, id, req.Status, req.Remarks)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"installation": inst})
}

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

type InspectionHandler struct {
	cfg *config.Settings
	svc *InspectionService
}

func NewInspectionHandler(cfg *config.Settings, svc *InspectionService) *InspectionHandler {
	return &InspectionHandler{cfg: cfg, svc: svc}
}

// Create opens an in_progress inspection against a code.
func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var insp models.Inspection
	if err := json.NewDecoder(r.Body).Decode(&insp); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if insp.QRCodeID == uuid.Nil {
		models.WriteError(w, models.ValidationError("qrCodeId", "qr code id is required"))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if err := h.svc.Create(*actor, &insp); err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"inspection": insp})
}

// Complete closes an in_progress inspection with its recommendation.
func (h *InspectionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		models.WriteError(w, models.ValidationError("id", "invalid inspection id"))
		return
	}
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}

	actor := middleware.ActorID(r)
	if actor == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	insp, err := h.svc.Complete(*actor, id, req)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"inspection": insp})
}

// List pages inspections, optionally by code and phase.
func (h *InspectionHandler) List(w http.ResponseWriter, r *http.Request) {
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
	out, total, err := h.svc.List(codeID, r.URL.Query().Get("status"), p)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	writePaged(w, out, models.NewPagination(p, total))
}

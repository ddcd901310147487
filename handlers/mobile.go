package handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/utils"
)

// MobileHandler is the field-app surface. A scan from the app decodes the
// payload offline-style first (no DB hit for garbage input), then resolves
// the full fitting detail and logs the scan in one call.
type MobileHandler struct {
	db     *gorm.DB
	cfg    *config.Settings
	svc    *QRService
	events *EventService
}

func NewMobileHandler(db *gorm.DB, cfg *config.Settings, svc *QRService, events *EventService) *MobileHandler {
	return &MobileHandler{db: db, cfg: cfg, svc: svc, events: events}
}

type mobileScanReq struct {
	Code        string          `json:"code"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	ScanPurpose string          `json:"scanPurpose,omitempty"`
	DeviceInfo  json.RawMessage `json:"deviceInfo,omitempty"`
}

// maxScanDistanceMeters is how far a reported scan position may sit from the
// recorded installation point before the scan is flagged. Handheld GPS under
// open sky is good to a few meters; 250 m absorbs canyon/tunnel drift while
// still catching a scan of the wrong fitting.
const maxScanDistanceMeters = 250

// scanProximity compares the reported scan position against the recorded
// installation point.
type scanProximity struct {
	DistanceMeters      float64 `json:"distanceMeters"`
	FarFromInstallation bool    `json:"farFromInstallation"`
}

// Scan resolves a scanned payload to the fitting's current state. Malformed
// payloads are rejected before any database work; unknown-but-well-formed
// codes come back 404. The scan itself is logged best-effort so a history
// write failure never blocks the lookup the field user is waiting on.
func (h *MobileHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req mobileScanReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	info, err := h.svc.ExtractInfo(req.Code)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	if req.Latitude != nil && req.Longitude != nil {
		if err := utils.ValidateCoordinate(*req.Latitude, *req.Longitude); err != nil {
			models.WriteError(w, models.ValidationError("latitude", "%v", err))
			return
		}
	}

	detail, err := h.svc.GetByCode(req.Code)
	if err != nil {
		models.WriteError(w, err)
		return
	}

	var proximity *scanProximity
	if req.Latitude != nil && req.Longitude != nil && detail.Installation != nil {
		d := utils.DistanceMeters(
			utils.Coordinate{Lat: *req.Latitude, Lng: *req.Longitude},
			utils.Coordinate{Lat: detail.Installation.Latitude, Lng: detail.Installation.Longitude},
		)
		proximity = &scanProximity{
			DistanceMeters:      d,
			FarFromInstallation: d > maxScanDistanceMeters,
		}
	}

	if actor := middleware.ActorID(r); actor != nil {
		scan := models.ScanLog{
			Code:        req.Code,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			ScanPurpose: req.ScanPurpose,
			DeviceInfo:  datatypes.JSON(req.DeviceInfo),
			IPAddress:   clientIP(r),
			ScanDate:    time.Now().UTC(),
		}
		if proximity != nil && proximity.FarFromInstallation {
			scan.Remarks = fmt.Sprintf("scan position %.0f m from installation point", proximity.DistanceMeters)
		}
		if err := h.events.LogScan(*actor, &scan); err == nil {
			detail.LastScan = &scan
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payload":   info,
		"detail":    detail,
		"proximity": proximity,
	})
}

// Decode parses a payload without touching the database, for offline
// pre-validation in the app. The response carries the rendered QR as an
// inline data URI so the app can show what a reprint would look like.
func (h *MobileHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	info, err := h.svc.ExtractInfo(req.Code)
	if err != nil {
		models.WriteError(w, err)
		return
	}
	uri, err := utils.RenderDataURI(req.Code, h.cfg.QRImageSize)
	if err != nil {
		models.WriteError(w, models.IntegrityError("image_render", "render QR image: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payload": info,
		"qrImage": uri,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

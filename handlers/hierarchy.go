package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/models"
)

// HierarchyHandler serves the zone/division/station reference data that
// installations point into. The core only needs create and list; everything
// else about the hierarchy lives elsewhere.
type HierarchyHandler struct {
	db  *gorm.DB
	cfg *config.Settings
}

func NewHierarchyHandler(db *gorm.DB, cfg *config.Settings) *HierarchyHandler {
	return &HierarchyHandler{db: db, cfg: cfg}
}

func (h *HierarchyHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var zone models.Zone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if zone.Name == "" || zone.Code == "" {
		models.WriteError(w, models.ValidationError("code", "zone name and code are required"))
		return
	}
	if err := h.db.Create(&zone).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "zone code", "zone_code_unique"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"zone": zone})
}

func (h *HierarchyHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	var zones []models.Zone
	if err := h.db.Order("code").Find(&zones).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"zones": zones})
}

func (h *HierarchyHandler) CreateDivision(w http.ResponseWriter, r *http.Request) {
	var div models.Division
	if err := json.NewDecoder(r.Body).Decode(&div); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if div.Name == "" || div.Code == "" {
		models.WriteError(w, models.ValidationError("code", "division name and code are required"))
		return
	}
	var count int64
	if err := h.db.Model(&models.Zone{}).Where("id = ?", div.ZoneID).Count(&count).Error; err == nil && count == 0 {
		models.WriteError(w, models.NotFoundError("zone", div.ZoneID.String()))
		return
	}
	if err := h.db.Create(&div).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "division code", "division_code_unique"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"division": div})
}

func (h *HierarchyHandler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	q := h.db.Model(&models.Division{})
	if v := r.URL.Query().Get("zoneId"); v != "" {
		q = q.Where("zone_id = ?", v)
	}
	var divs []models.Division
	if err := q.Order("code").Find(&divs).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"divisions": divs})
}

func (h *HierarchyHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var st models.Station
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if st.Name == "" || st.Code == "" {
		models.WriteError(w, models.ValidationError("code", "station name and code are required"))
		return
	}
	var count int64
	if err := h.db.Model(&models.Division{}).Where("id = ?", st.DivisionID).Count(&count).Error; err == nil && count == 0 {
		models.WriteError(w, models.NotFoundError("division", st.DivisionID.String()))
		return
	}
	if err := h.db.Create(&st).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "station code", "station_code_unique"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"station": st})
}

func (h *HierarchyHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	q := h.db.Model(&models.Station{})
	if v := r.URL.Query().Get("divisionId"); v != "" {
		q = q.Where("division_id = ?", v)
	}
	var stations []models.Station
	if err := q.Order("code").Find(&stations).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stations": stations})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/middleware"
	"p9e.in/qrtrack/models"
)

// AnalysisHandler ingests reports produced by the external analysis service
// and serves them back per fitting. Payloads are stored verbatim.
type AnalysisHandler struct {
	db  *gorm.DB
	cfg *config.Settings
}

func NewAnalysisHandler(db *gorm.DB, cfg *config.Settings) *AnalysisHandler {
	return &AnalysisHandler{db: db, cfg: cfg}
}

type analysisIngestReq struct {
	Code        string           `json:"code"`
	RiskScore   float64          `json:"riskScore"`
	Summary     string           `json:"summary"`
	Payload     json.RawMessage  `json:"payload"`
	ModelName   string           `json:"modelName"`
	GeneratedAt *models.JSONTime `json:"generatedAt"`
}

func (h *AnalysisHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req analysisIngestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, models.ValidationError("body", "invalid JSON: %v", err))
		return
	}
	if req.Code == "" {
		models.WriteError(w, models.ValidationError("code", "code is required"))
		return
	}
	if req.RiskScore < 0 || req.RiskScore > 1 {
		models.WriteError(w, models.ValidationError("riskScore", "risk score must be between 0 and 1"))
		return
	}

	var qr models.QRCode
	if err := h.db.Where("code = ?", req.Code).First(&qr).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "qr code", "qr_code_exists"))
		return
	}

	generatedAt := time.Now()
	if req.GeneratedAt != nil {
		generatedAt = time.Time(*req.GeneratedAt)
	}
	report := models.AnalysisReport{
		QRCodeID:    qr.ID,
		RiskScore:   req.RiskScore,
		Summary:     req.Summary,
		Payload:     []byte(req.Payload),
		ModelName:   req.ModelName,
		GeneratedAt: generatedAt,
		CreatedBy:   middleware.ActorID(r),
	}
	if err := h.db.Create(&report).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"report": report})
}

func (h *AnalysisHandler) ListForCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var qr models.QRCode
	if err := h.db.Where("code = ?", code).First(&qr).Error; err != nil {
		models.WriteError(w, models.TranslateDBError(err, "qr code", "qr_code_exists"))
		return
	}

	var reports []models.AnalysisReport
	if err := h.db.Where("qr_code_id = ?", qr.ID).
		Order("generated_at DESC").Find(&reports).Error; err != nil {
		models.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

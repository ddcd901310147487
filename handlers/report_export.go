package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/models"
)

// ReportHandler produces xlsx downloads for the office side: batch
// production summaries and installation registers.
type ReportHandler struct {
	db  *gorm.DB
	cfg *config.Settings
}

func NewReportHandler(db *gorm.DB, cfg *config.Settings) *ReportHandler {
	return &ReportHandler{db: db, cfg: cfg}
}

// ExportBatches writes every batch with its generation progress to a sheet.
func (h *ReportHandler) ExportBatches(w http.ResponseWriter, r *http.Request) {
	q := h.db.Model(&models.FittingBatch{})
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var batches []models.FittingBatch
	if err := q.Order("created_at").Find(&batches).Error; err != nil {
		models.WriteError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Batches"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Batch Number", "Supply Order", "Manufacturer Ref", "Quantity",
		"Codes Generated", "Status", "Quality Grade", "Manufacturing Date", "QR Generation Date"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hdr)
	}

	for row, b := range batches {
		genDate := ""
		if b.QRGenerationDate != nil {
			genDate = b.QRGenerationDate.Format("2006-01-02")
		}
		values := []interface{}{
			b.BatchNumber, b.SupplyOrderRef, b.ManufacturerRef, b.Quantity,
			b.QRCodesGenerated, b.Status, b.QualityGrade,
			time.Time(b.ManufacturingDate).Format("2006-01-02"), genDate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	writeWorkbook(w, f, fmt.Sprintf("batches_%s.xlsx", time.Now().Format("20060102")))
}

// ExportInstallations writes the installation register, joined with the code
// payload, filtered the same way the list endpoint filters.
func (h *ReportHandler) ExportInstallations(w http.ResponseWriter, r *http.Request) {
	q := h.db.Model(&models.Installation{}).Preload("QRCode")
	if v := r.URL.Query().Get("zoneId"); v != "" {
		q = q.Where("zone_id = ?", v)
	}
	if v := r.URL.Query().Get("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	var installs []models.Installation
	if err := q.Order("installation_date").Find(&installs).Error; err != nil {
		models.WriteError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Installations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"QR Code", "Track Section", "Kilometer Post", "Latitude", "Longitude",
		"Status", "Installation Date", "Warranty End", "Installation Type", "Remarks"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hdr)
	}

	for row, in := range installs {
		values := []interface{}{
			in.QRCode.Code, in.TrackSection, in.KilometerPost, in.Latitude, in.Longitude,
			in.Status, in.InstallationDate.Format("2006-01-02"),
			in.WarrantyEndDate.Format("2006-01-02"), in.InstallationType, in.Remarks,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	writeWorkbook(w, f, fmt.Sprintf("installations_%s.xlsx", time.Now().Format("20060102")))
}

func writeWorkbook(w http.ResponseWriter, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := f.Write(w); err != nil {
		http.Error(w, "failed to write workbook", http.StatusInternalServerError)
	}
}

package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

func TestLogScanAdvancesPointer(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	events := NewEventService(db)

	rec, _ := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)
	actor := uuid.New()

	first := models.ScanLog{Code: rec.Code, ScanPurpose: "inspection"}
	if err := events.LogScan(actor, &first); err != nil {
		t.Fatalf("first LogScan: %v", err)
	}
	second := models.ScanLog{Code: rec.Code, ScanDate: time.Now().UTC().Add(time.Minute)}
	if err := events.LogScan(actor, &second); err != nil {
		t.Fatalf("second LogScan: %v", err)
	}

	ptr, err := events.LastEvent(rec.ID, models.EventScan)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if ptr == nil {
		t.Fatal("no scan pointer after two scans")
	}
	if ptr.EventID != second.ID {
		t.Errorf("pointer targets %s, want latest scan %s", ptr.EventID, second.ID)
	}

	// exactly one pointer row per (code, type) regardless of scan count
	var count int64
	db.Model(&models.EventPointer{}).Where("qr_code_id = ?", rec.ID).Count(&count)
	if count != 1 {
		t.Errorf("%d pointer rows, want 1", count)
	}

	var reloaded models.QRCode
	db.First(&reloaded, "id = ?", rec.ID)
	if reloaded.LastScannedAt == nil || reloaded.LastScannedBy == nil {
		t.Error("last-scan denormalised fields not stamped")
	}
	if second.ScanPurpose != "general" {
		t.Errorf("scan purpose default = %q, want general", second.ScanPurpose)
	}
}

func TestLogScanUnknownCode(t *testing.T) {
	db := newTestDB(t)
	events := NewEventService(db)

	err := events.LogScan(uuid.New(), &models.ScanLog{Code: "QRTF_b_000001_deadbeef"})
	assertAppError(t, err, models.ErrKindNotFound, "")
}

func TestLastEventEmptyHistory(t *testing.T) {
	db := newTestDB(t)
	events := NewEventService(db)

	ptr, err := events.LastEvent(uuid.New(), models.EventScan)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if ptr != nil {
		t.Error("pointer returned for a code with no history")
	}
}

func TestMaintenanceDue(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	events := NewEventService(db)
	installs := NewInstallationService(db, cfg)
	maint := NewMaintenanceService(db, events, installs)

	rec, _ := seedInstalledCode(t, db, cfg, lifecycle.StatusInService)
	now := time.Now().UTC()

	// no history yet
	due, err := events.MaintenanceDue(rec.ID, now)
	if err != nil || due {
		t.Fatalf("MaintenanceDue(no history) = %v, %v; want false, nil", due, err)
	}

	past := now.Add(-24 * time.Hour)
	m := models.MaintenanceRecord{
		QRCodeID:           rec.ID,
		MaintenanceType:    "lubrication",
		WorkDescription:    "greased fastener assembly",
		NextMaintenanceDue: &past,
	}
	if err := maint.Create(uuid.New(), &m, false); err != nil {
		t.Fatalf("Create maintenance: %v", err)
	}

	due, err = events.MaintenanceDue(rec.ID, now)
	if err != nil {
		t.Fatalf("MaintenanceDue: %v", err)
	}
	if !due {
		t.Error("maintenance with past next-due date not reported due")
	}
}

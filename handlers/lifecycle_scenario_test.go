package handlers

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

// TestFullFittingLifecycle walks one unit from bulk generation to retirement,
// checking that the QR record and its installation never disagree.
func TestFullFittingLifecycle(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	store := NewFileStore(cfg.UploadDir)
	qrSvc := NewQRService(db, cfg, store)
	installSvc := NewInstallationService(db, cfg)
	events := NewEventService(db)
	inspSvc := NewInspectionService(db, events, installSvc)
	maintSvc := NewMaintenanceService(db, events, installSvc)

	actor := uuid.New()
	batch := seedBatch(t, db, 3, models.BatchApproved)
	zone := seedZone(t, db)

	result, err := qrSvc.GenerateForBatch(&actor, batch.ID, 3, "MM-02", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Generated != 3 {
		t.Fatalf("generated %d, want 3", result.Generated)
	}
	rec := result.QRCodes[0]

	if _, err := qrSvc.MarkPrinted(&actor, rec.ID); err != nil {
		t.Fatalf("print: %v", err)
	}
	if _, err := qrSvc.Verify(&actor, rec.ID, VerifyRequest{VerificationStatus: "verified"}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	inst, err := installSvc.Install(actor, InstallRequest{
		QRCodeID:      rec.ID,
		ZoneID:        zone.ID,
		TrackSection:  "UP-MAIN-09",
		KilometerPost: "KM 412/3",
		Coordinates:   coord(13.0827, 80.2707),
	})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusInstalled)

	if _, err := installSvc.UpdateStatus(actor, inst.ID, lifecycle.StatusInService, "commissioned"); err != nil {
		t.Fatalf("commission: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusInService)

	// field scan while in service
	if err := events.LogScan(actor, &models.ScanLog{Code: rec.Code, ScanPurpose: "inspection"}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// inspection finds wear, recommends maintenance
	entry := models.Inspection{QRCodeID: rec.ID, InspectionType: "routine", VisualCondition: "worn"}
	if err := inspSvc.Create(actor, &entry); err != nil {
		t.Fatalf("open inspection: %v", err)
	}
	if _, err := inspSvc.Complete(actor, entry.ID, CompleteRequest{
		Recommendation: models.RecommendScheduleMaintenance,
	}); err != nil {
		t.Fatalf("complete inspection: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusMaintenanceDue)

	// maintenance returns the unit to service
	m := models.MaintenanceRecord{QRCodeID: rec.ID, MaintenanceType: "repair", WorkDescription: "re-torqued assembly"}
	if err := maintSvc.Create(actor, &m, true); err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusInService)

	// end of life
	if _, err := installSvc.UpdateStatus(actor, inst.ID, lifecycle.StatusReplaced, "unit swapped"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusReplaced)
	if _, err := installSvc.UpdateStatus(actor, inst.ID, lifecycle.StatusRetired, ""); err != nil {
		t.Fatalf("retire: %v", err)
	}
	assertLockstep(t, db, rec.ID, inst.ID, lifecycle.StatusRetired)

	// retired is terminal
	if _, err := installSvc.UpdateStatus(actor, inst.ID, lifecycle.StatusInService, ""); err == nil {
		t.Fatal("retired installation accepted a transition")
	}

	// full detail lookup still resolves everything
	detail, err := qrSvc.GetByCode(rec.Code)
	if err != nil {
		t.Fatalf("detail lookup: %v", err)
	}
	if detail.Installation == nil || detail.LastInspection == nil ||
		detail.LastScan == nil || detail.LastService == nil {
		t.Error("detail lookup missing related entities at end of life")
	}
}

func assertLockstep(t *testing.T, db *gorm.DB, qrID, instID uuid.UUID, want string) {
	t.Helper()
	var code models.QRCode
	var inst models.Installation
	if err := db.First(&code, "id = ?", qrID).Error; err != nil {
		t.Fatalf("reload qr code: %v", err)
	}
	if err := db.First(&inst, "id = ?", instID).Error; err != nil {
		t.Fatalf("reload installation: %v", err)
	}
	if code.Status != want || inst.Status != want {
		t.Fatalf("status lockstep broken: qr=%s installation=%s, want %s", code.Status, inst.Status, want)
	}
}

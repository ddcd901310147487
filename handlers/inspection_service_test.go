package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

func newInspectionEnv(t *testing.T) (*InspectionService, *MaintenanceService, *testEnv) {
	t.Helper()
	db := newTestDB(t)
	cfg := testSettings(t)
	events := NewEventService(db)
	installs := NewInstallationService(db, cfg)
	return NewInspectionService(db, events, installs),
		NewMaintenanceService(db, events, installs),
		&testEnv{db: db, cfg: cfg}
}

func TestInspectionTwoPhase(t *testing.T) {
	insp, _, tc := newInspectionEnv(t)
	rec, _ := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)
	actor := uuid.New()

	entry := models.Inspection{
		QRCodeID:        rec.ID,
		InspectionType:  "routine",
		VisualCondition: "good",
	}
	if err := insp.Create(actor, &entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.Status != models.InspectionInProgress {
		t.Fatalf("status = %s, want in_progress", entry.Status)
	}

	nextDue := time.Now().UTC().AddDate(0, 6, 0)
	done, err := insp.Complete(actor, entry.ID, CompleteRequest{
		Recommendation:    models.RecommendContinueService,
		NextInspectionDue: &nextDue,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.InspectionCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CompletedAt == nil || done.CompletedBy == nil {
		t.Error("completion not stamped")
	}

	// a completed inspection cannot be completed again
	_, err = insp.Complete(actor, entry.ID, CompleteRequest{Recommendation: models.RecommendContinueService})
	assertAppError(t, err, models.ErrKindConflict, "inspection_phase")
}

func TestInspectionCreateValidation(t *testing.T) {
	insp, _, tc := newInspectionEnv(t)
	rec, _ := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)

	err := insp.Create(uuid.New(), &models.Inspection{QRCodeID: uuid.New(), InspectionType: "routine", VisualCondition: "good"})
	assertAppError(t, err, models.ErrKindNotFound, "")

	err = insp.Create(uuid.New(), &models.Inspection{QRCodeID: rec.ID, VisualCondition: "good"})
	assertAppError(t, err, models.ErrKindValidation, "")

	err = insp.Create(uuid.New(), &models.Inspection{QRCodeID: rec.ID, InspectionType: "routine"})
	assertAppError(t, err, models.ErrKindValidation, "")
}

func TestInspectionCompleteRejectsUnknownRecommendation(t *testing.T) {
	insp, _, tc := newInspectionEnv(t)
	rec, _ := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)

	entry := models.Inspection{QRCodeID: rec.ID, InspectionType: "routine", VisualCondition: "fair"}
	if err := insp.Create(uuid.New(), &entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := insp.Complete(uuid.New(), entry.ID, CompleteRequest{Recommendation: "replace_eventually"})
	assertAppError(t, err, models.ErrKindValidation, "")
}

func TestInspectionRecommendationDrivesMaintenanceDue(t *testing.T) {
	insp, _, tc := newInspectionEnv(t)
	rec, inst := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)

	entry := models.Inspection{QRCodeID: rec.ID, InspectionType: "routine", VisualCondition: "worn"}
	if err := insp.Create(uuid.New(), &entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := insp.Complete(uuid.New(), entry.ID, CompleteRequest{
		Recommendation: models.RecommendScheduleMaintenance,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var code models.QRCode
	var reloaded models.Installation
	tc.db.First(&code, "id = ?", rec.ID)
	tc.db.First(&reloaded, "id = ?", inst.ID)
	if code.Status != lifecycle.StatusMaintenanceDue {
		t.Errorf("qr status = %s, want maintenance_due", code.Status)
	}
	if reloaded.Status != lifecycle.StatusMaintenanceDue {
		t.Errorf("installation status = %s, want maintenance_due", reloaded.Status)
	}
}

func TestInspectionPointerTracksLatestPhase(t *testing.T) {
	insp, _, tc := newInspectionEnv(t)
	events := NewEventService(tc.db)
	rec, _ := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)

	entry := models.Inspection{QRCodeID: rec.ID, InspectionType: "routine", VisualCondition: "good"}
	if err := insp.Create(uuid.New(), &entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ptr, err := events.LastEvent(rec.ID, models.EventInspection)
	if err != nil || ptr == nil {
		t.Fatalf("LastEvent after create: ptr=%v err=%v", ptr, err)
	}
	if ptr.EventID != entry.ID {
		t.Errorf("pointer targets %s, want %s", ptr.EventID, entry.ID)
	}

	nextDue := time.Now().UTC().AddDate(0, 3, 0)
	if _, err := insp.Complete(uuid.New(), entry.ID, CompleteRequest{
		Recommendation:    models.RecommendMonitorClosely,
		NextInspectionDue: &nextDue,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	ptr, err = events.LastEvent(rec.ID, models.EventInspection)
	if err != nil || ptr == nil {
		t.Fatalf("LastEvent after complete: ptr=%v err=%v", ptr, err)
	}
	if ptr.NextDue == nil {
		t.Error("pointer next-due not carried from completion")
	}
}

func TestMaintenanceReturnToService(t *testing.T) {
	_, maint, tc := newInspectionEnv(t)
	rec, inst := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusMaintenanceDue)

	m := models.MaintenanceRecord{
		QRCodeID:        rec.ID,
		MaintenanceType: "fastener_replacement",
		WorkDescription: "replaced worn clip",
	}
	if err := maint.Create(uuid.New(), &m, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var code models.QRCode
	var reloaded models.Installation
	tc.db.First(&code, "id = ?", rec.ID)
	tc.db.First(&reloaded, "id = ?", inst.ID)
	if code.Status != lifecycle.StatusInService || reloaded.Status != lifecycle.StatusInService {
		t.Errorf("statuses after return to service: qr=%s installation=%s, want in_service", code.Status, reloaded.Status)
	}
}

func TestMaintenanceValidation(t *testing.T) {
	_, maint, tc := newInspectionEnv(t)
	rec, _ := seedInstalledCode(t, tc.db, tc.cfg, lifecycle.StatusInService)

	err := maint.Create(uuid.New(), &models.MaintenanceRecord{QRCodeID: rec.ID, MaintenanceType: "x"}, false)
	assertAppError(t, err, models.ErrKindValidation, "")

	cost := -10.0
	err = maint.Create(uuid.New(), &models.MaintenanceRecord{
		QRCodeID: rec.ID, MaintenanceType: "x", WorkDescription: "y", Cost: &cost,
	}, false)
	assertAppError(t, err, models.ErrKindValidation, "")
}

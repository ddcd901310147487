package handlers

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
)

func TestInstallBindsAndPropagates(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	batch := seedBatch(t, db, 10, models.BatchApproved)
	zone := seedZone(t, db)
	rec := seedQRCode(t, db, batch.ID, 1, lifecycle.StatusVerified)

	actor := uuid.New()
	inst, err := svc.Install(actor, InstallRequest{
		QRCodeID:     rec.ID,
		ZoneID:       zone.ID,
		TrackSection: "DN-MAIN-07",
		Coordinates:  coord(13.0827, 80.2707),
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if inst.Status != lifecycle.StatusInstalled {
		t.Errorf("installation status = %s, want installed", inst.Status)
	}
	if inst.InstalledBy != actor {
		t.Error("installer not recorded")
	}

	wantWarranty := inst.WarrantyStartDate.AddDate(0, cfg.WarrantyMonths, 0)
	if !inst.WarrantyEndDate.Equal(wantWarranty) {
		t.Errorf("warranty end = %v, want %v", inst.WarrantyEndDate, wantWarranty)
	}

	var reloaded models.QRCode
	if err := db.First(&reloaded, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("reload qr code: %v", err)
	}
	if reloaded.Status != lifecycle.StatusInstalled {
		t.Errorf("qr status = %s, want installed after binding", reloaded.Status)
	}
}

func TestInstallRequiresVerifiedCode(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	batch := seedBatch(t, db, 10, models.BatchApproved)
	zone := seedZone(t, db)

	for i, status := range []string{lifecycle.StatusGenerated, lifecycle.StatusPrinted, lifecycle.StatusRejected} {
		rec := seedQRCode(t, db, batch.ID, i+1, status)
		_, err := svc.Install(uuid.New(), InstallRequest{
			QRCodeID:     rec.ID,
			ZoneID:       zone.ID,
			TrackSection: "UP-LOOP-02",
			Coordinates:  coord(10, 70),
		})
		assertAppError(t, err, models.ErrKindConflict, "install_precondition")
	}
}

func TestInstallRejectsSecondBinding(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	rec, _ := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)
	zone := seedZone(t, db)

	// even if the code status drifted back to verified, the existing
	// installation row must block a second binding
	if err := db.Model(&models.QRCode{}).Where("id = ?", rec.ID).
		Update("status", lifecycle.StatusVerified).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}
	_, err := svc.Install(uuid.New(), InstallRequest{
		QRCodeID:     rec.ID,
		ZoneID:       zone.ID,
		TrackSection: "UP-LOOP-02",
		Coordinates:  coord(10, 70),
	})
	assertAppError(t, err, models.ErrKindConflict, "installation_unique")
}

func TestInstallValidatesInput(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	batch := seedBatch(t, db, 10, models.BatchApproved)
	zone := seedZone(t, db)
	rec := seedQRCode(t, db, batch.ID, 1, lifecycle.StatusVerified)

	_, err := svc.Install(uuid.New(), InstallRequest{
		QRCodeID: rec.ID, ZoneID: zone.ID, Coordinates: coord(10, 70),
	})
	assertAppError(t, err, models.ErrKindValidation, "")

	_, err = svc.Install(uuid.New(), InstallRequest{
		QRCodeID: rec.ID, ZoneID: zone.ID, TrackSection: "UP", Coordinates: coord(120, 70),
	})
	assertAppError(t, err, models.ErrKindValidation, "")

	_, err = svc.Install(uuid.New(), InstallRequest{
		QRCodeID: rec.ID, ZoneID: uuid.New(), TrackSection: "UP", Coordinates: coord(10, 70),
	})
	assertAppError(t, err, models.ErrKindNotFound, "zone_exists")
}

func TestInstallRaceResolvesToOneWinner(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	batch := seedBatch(t, db, 10, models.BatchApproved)
	zone := seedZone(t, db)
	rec := seedQRCode(t, db, batch.ID, 1, lifecycle.StatusVerified)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Install(uuid.New(), InstallRequest{
				QRCodeID:     rec.ID,
				ZoneID:       zone.ID,
				TrackSection: "UP-MAIN-01",
				Coordinates:  coord(13, 80),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d installs succeeded, want exactly 1", succeeded)
	}

	var count int64
	db.Model(&models.Installation{}).Where("qr_code_id = ?", rec.ID).Count(&count)
	if count != 1 {
		t.Fatalf("%d installation rows, want 1", count)
	}
}

func TestUpdateStatusKeepsRowsInLockstep(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	rec, inst := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)

	updated, err := svc.UpdateStatus(uuid.New(), inst.ID, lifecycle.StatusInService, "commissioned")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != lifecycle.StatusInService {
		t.Errorf("installation status = %s, want in_service", updated.Status)
	}

	var code models.QRCode
	if err := db.First(&code, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("reload qr code: %v", err)
	}
	if code.Status != lifecycle.StatusInService {
		t.Errorf("qr status = %s, want in_service (dual write)", code.Status)
	}
}

func TestUpdateStatusRejectsIllegalEdgeAtomically(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	rec, inst := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)

	// installed -> retired is legal, retired -> in_service is not
	if _, err := svc.UpdateStatus(uuid.New(), inst.ID, lifecycle.StatusRetired, ""); err != nil {
		t.Fatalf("retire: %v", err)
	}
	_, err := svc.UpdateStatus(uuid.New(), inst.ID, lifecycle.StatusInService, "")
	assertAppError(t, err, models.ErrKindConflict, "illegal_transition")

	var code models.QRCode
	var reloaded models.Installation
	db.First(&code, "id = ?", rec.ID)
	db.First(&reloaded, "id = ?", inst.ID)
	if code.Status != lifecycle.StatusRetired || reloaded.Status != lifecycle.StatusRetired {
		t.Errorf("statuses drifted after rejected edge: qr=%s installation=%s", code.Status, reloaded.Status)
	}
}

func TestUpdateStatusRejectsNonOperational(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	_, inst := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)
	_, err := svc.UpdateStatus(uuid.New(), inst.ID, lifecycle.StatusPrinted, "")
	assertAppError(t, err, models.ErrKindValidation, "")
}

func TestListFiltersByZoneAndStatus(t *testing.T) {
	db := newTestDB(t)
	cfg := testSettings(t)
	svc := NewInstallationService(db, cfg)

	_, a := seedInstalledCode(t, db, cfg, lifecycle.StatusInstalled)
	_, b := seedInstalledCode(t, db, cfg, lifecycle.StatusInService)

	out, total, err := svc.List(ListFilter{Status: lifecycle.StatusInService}, models.ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(out) != 1 || out[0].ID != b.ID {
		t.Errorf("status filter returned %d rows (total %d)", len(out), total)
	}

	out, total, err = svc.List(ListFilter{ZoneID: &a.ZoneID}, models.ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List by zone: %v", err)
	}
	if total != 1 || len(out) != 1 || out[0].ID != a.ID {
		t.Errorf("zone filter returned %d rows (total %d)", len(out), total)
	}
}

package handlers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/models"
	"p9e.in/qrtrack/pkg/lifecycle"
	"p9e.in/qrtrack/utils"
)

func coord(lat, lng float64) utils.Coordinate {
	return utils.Coordinate{Lat: lat, Lng: lng}
}

// testEnv bundles the database and settings a service test needs alongside
// the service under test.
type testEnv struct {
	db  *gorm.DB
	cfg *config.Settings
}

// newTestDB opens a private in-memory database with the same error
// translation the production connection uses, so duplicate-key behaviour
// matches Postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{}, &models.Zone{}, &models.Division{}, &models.Station{},
		&models.FittingBatch{}, &models.QRCode{}, &models.Installation{},
		&models.ScanLog{}, &models.Inspection{}, &models.MaintenanceRecord{},
		&models.EventPointer{}, &models.AnalysisReport{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		QRPrefix:         "QRTF",
		MaxBatchQuantity: 10000,
		GenerationChunk:  5,
		QRImageSize:      128,
		WarrantyMonths:   24,
		UploadDir:        t.TempDir(),
		DefaultPageSize:  10,
		MaxPageSize:      100,
	}
}

func seedBatch(t *testing.T, db *gorm.DB, quantity int, status string) *models.FittingBatch {
	t.Helper()
	batch := models.FittingBatch{
		BatchNumber:       "B-" + uuid.NewString()[:8],
		Quantity:          quantity,
		ManufacturingDate: models.JSONTime(time.Now().UTC()),
		Status:            status,
	}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	return &batch
}

func seedZone(t *testing.T, db *gorm.DB) *models.Zone {
	t.Helper()
	zone := models.Zone{Name: "Test Zone", Code: "TZ-" + uuid.NewString()[:8]}
	if err := db.Create(&zone).Error; err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	return &zone
}

// seedQRCode inserts a record directly, bypassing generation, for tests that
// exercise the downstream lifecycle.
func seedQRCode(t *testing.T, db *gorm.DB, batchID uuid.UUID, seq int, status string) *models.QRCode {
	t.Helper()
	rec := models.QRCode{
		Code:           fmt.Sprintf("QRTF_%s_%06d_%s", batchID, seq, uuid.NewString()[:8]),
		FittingBatchID: batchID,
		SequenceNumber: seq,
		Status:         status,
		GeneratedAt:    time.Now().UTC(),
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed qr code: %v", err)
	}
	return &rec
}

// seedInstalledCode produces a code bound to an installation in the given
// operational status, with both rows in lockstep.
func seedInstalledCode(t *testing.T, db *gorm.DB, cfg *config.Settings, status string) (*models.QRCode, *models.Installation) {
	t.Helper()
	batch := seedBatch(t, db, 10, models.BatchApproved)
	zone := seedZone(t, db)
	rec := seedQRCode(t, db, batch.ID, 1, lifecycle.StatusVerified)

	svc := NewInstallationService(db, cfg)
	inst, err := svc.Install(uuid.New(), InstallRequest{
		QRCodeID:     rec.ID,
		ZoneID:       zone.ID,
		TrackSection: "UP-MAIN-01",
		Coordinates:  coord(13.0827, 80.2707),
	})
	if err != nil {
		t.Fatalf("seed installation: %v", err)
	}
	if status != lifecycle.StatusInstalled {
		if _, err := svc.UpdateStatus(uuid.New(), inst.ID, status, ""); err != nil {
			t.Fatalf("seed installation status %s: %v", status, err)
		}
		inst.Status = status
	}
	rec.Status = status
	return rec, inst
}

func assertAppError(t *testing.T, err error, kind, rule string) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s error, got nil", kind)
	}
	appErr, ok := err.(*models.AppError)
	if !ok {
		t.Fatalf("want *models.AppError, got %T: %v", err, err)
	}
	if appErr.Kind != kind {
		t.Errorf("error kind = %q, want %q (%v)", appErr.Kind, kind, err)
	}
	if rule != "" && appErr.Rule != rule {
		t.Errorf("error rule = %q, want %q (%v)", appErr.Rule, rule, err)
	}
}

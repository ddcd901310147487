package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"p9e.in/qrtrack/models"
)

// Migrations applies pending schema migrations in order. New migrations get
// appended with a dated ID; existing ones are never edited in place.
func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250812_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.User{},
					&models.Zone{}, &models.Division{}, &models.Station{},
					&models.FittingBatch{}, &models.QRCode{}, &models.Installation{},
				)
			},
		},
		{
			ID: "20250812_create_event_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.ScanLog{}, &models.Inspection{},
					&models.MaintenanceRecord{}, &models.EventPointer{},
				)
			},
		},
		{
			ID: "20250819_add_analysis_reports",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.AnalysisReport{})
			},
		},
		{
			ID: "20250819_add_status_indexes",
			Migrate: func(tx *gorm.DB) error {
				stmts := []string{
					"CREATE INDEX IF NOT EXISTS idx_qr_codes_status ON qr_codes (status)",
					"CREATE INDEX IF NOT EXISTS idx_qr_codes_batch_status ON qr_codes (fitting_batch_id, status)",
					"CREATE INDEX IF NOT EXISTS idx_installations_zone_status ON installations (zone_id, status)",
				}
				for _, stmt := range stmts {
					if err := tx.Exec(stmt).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "20250828_add_qr_updated_by",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.QRCode{})
			},
		},
	})
	return m.Migrate()
}

package config

import (
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"p9e.in/qrtrack/models"
)

// RunAllSeeding fills an empty database with the reference hierarchy and a
// bootstrap admin user. Every step is idempotent; rerunning on a populated
// database is a no-op.
func RunAllSeeding(db *gorm.DB) error {
	log.Println("[1/2] Seeding location hierarchy...")
	if err := SeedHierarchy(db); err != nil {
		return err
	}
	log.Println("[2/2] Seeding default admin user...")
	if err := SeedAdminUser(db); err != nil {
		return err
	}
	log.Println("Database seeding complete")
	return nil
}

// SeedHierarchy creates a starter zone/division/station tree keyed on codes.
func SeedHierarchy(db *gorm.DB) error {
	zones := []models.Zone{
		{Name: "Southern Zone", Code: "SZ", Region: "South"},
		{Name: "Central Zone", Code: "CZ", Region: "Central"},
	}
	for i := range zones {
		var existing models.Zone
		err := db.Where("code = ?", zones[i].Code).First(&existing).Error
		if err == nil {
			zones[i] = existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&zones[i]).Error; err != nil {
			return err
		}
	}

	divisions := []models.Division{
		{Name: "Metro Division", Code: "SZ-MD", ZoneID: zones[0].ID},
		{Name: "Coastal Division", Code: "SZ-CD", ZoneID: zones[0].ID},
		{Name: "Plateau Division", Code: "CZ-PD", ZoneID: zones[1].ID},
	}
	for i := range divisions {
		var existing models.Division
		err := db.Where("code = ?", divisions[i].Code).First(&existing).Error
		if err == nil {
			divisions[i] = existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&divisions[i]).Error; err != nil {
			return err
		}
	}

	stations := []models.Station{
		{Name: "Central Terminus", Code: "SZ-MD-CT", DivisionID: divisions[0].ID},
		{Name: "Harbour Junction", Code: "SZ-CD-HJ", DivisionID: divisions[1].ID},
		{Name: "Plateau Summit", Code: "CZ-PD-PS", DivisionID: divisions[2].ID},
	}
	for i := range stations {
		var count int64
		if err := db.Model(&models.Station{}).Where("code = ?", stations[i].Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&stations[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdminUser creates the bootstrap super_admin when no user holds that
// role yet. The credentials come from the environment so they never land in
// source control.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	phone := envOr("ADMIN_PHONE", "9000000000")
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin user seed")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Name:         envOr("ADMIN_NAME", "System Admin"),
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Seeded super_admin %s (phone %s)", admin.Name, admin.Phone)
	return nil
}

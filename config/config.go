package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Settings holds every runtime knob. It is built once in Load and handed to
// the constructors that need it; nothing in this package keeps mutable
// package-level state.
type Settings struct {
	Port      string
	DBDSN     string
	JWTSecret string

	// QR code payload / generation
	QRPrefix         string
	MaxBatchQuantity int
	GenerationChunk  int
	QRImageSize      int

	// Installations
	WarrantyMonths int

	// Artifact storage
	UploadDir string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

// Load reads settings from the environment. A .env file is honoured when
// present but never overrides variables already set by the system.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	s := &Settings{
		Port:             envOr("PORT", "8080"),
		DBDSN:            os.Getenv("DB_DSN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		QRPrefix:         envOr("QR_PREFIX", "QRTF"),
		MaxBatchQuantity: envIntOr("QR_MAX_BATCH_QUANTITY", 10000),
		GenerationChunk:  envIntOr("QR_GENERATION_CHUNK", 50),
		QRImageSize:      envIntOr("QR_IMAGE_SIZE", 256),
		WarrantyMonths:   envIntOr("WARRANTY_MONTHS", 24),
		UploadDir:        envOr("UPLOAD_DIR", "./uploads"),
		DefaultPageSize:  envIntOr("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:      envIntOr("MAX_PAGE_SIZE", 100),
	}
	return s
}

// Connect opens the Postgres connection and runs pending migrations.
func Connect(s *Settings) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(s.DBDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

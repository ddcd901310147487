package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/qrtrack/config"
	"p9e.in/qrtrack/handlers"
	"p9e.in/qrtrack/middleware"
)

// RegisterRoutes builds the full router: public auth endpoints, then the
// authenticated /api/v1 tree with per-resource permission gates.
func RegisterRoutes(db *gorm.DB, cfg *config.Settings) http.Handler {
	r := mux.NewRouter()

	store := handlers.NewFileStore(cfg.UploadDir)
	events := handlers.NewEventService(db)
	qrSvc := handlers.NewQRService(db, cfg, store)
	installSvc := handlers.NewInstallationService(db, cfg)
	inspSvc := handlers.NewInspectionService(db, events, installSvc)
	maintSvc := handlers.NewMaintenanceService(db, events, installSvc)

	auth := handlers.NewAuthHandler(db, cfg)
	qr := handlers.NewQRCodeHandler(db, cfg, qrSvc, events, store)
	installs := handlers.NewInstallationHandler(cfg, installSvc)
	batches := handlers.NewBatchHandler(db, cfg)
	inspections := handlers.NewInspectionHandler(cfg, inspSvc)
	maintenance := handlers.NewMaintenanceHandler(cfg, maintSvc)
	hierarchy := handlers.NewHierarchyHandler(db, cfg)
	analysis := handlers.NewAnalysisHandler(db, cfg)
	mobile := handlers.NewMobileHandler(db, cfg, qrSvc, events)
	reports := handlers.NewReportHandler(db, cfg)

	// Public routes
	r.HandleFunc("/register", auth.Register).Methods("POST")
	r.HandleFunc("/login", auth.Login).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWT([]byte(cfg.JWTSecret)))

	// Fitting batches
	fb := api.PathPrefix("/fitting-batches").Subrouter()
	fb.Use(middleware.RequirePermission("fitting_batches"))
	fb.HandleFunc("", batches.Create).Methods("POST")
	fb.HandleFunc("", batches.List).Methods("GET")
	fb.HandleFunc("/{id}", batches.Get).Methods("GET")
	fb.HandleFunc("/{id}/status", batches.UpdateStatus).Methods("PATCH")
	fb.HandleFunc("/{batchId}/qr-codes", qr.ListByBatch).Methods("GET")

	// QR codes
	qrs := api.PathPrefix("/qr-codes").Subrouter()
	qrs.Use(middleware.RequirePermission("qr_codes"))
	qrs.HandleFunc("/generate", qr.GenerateBatch).Methods("POST")
	qrs.HandleFunc("/code/{code}", qr.Get).Methods("GET")
	qrs.HandleFunc("/code/{code}/scan", qr.Scan).Methods("POST")
	qrs.HandleFunc("/code/{code}/scans", qr.ListScans).Methods("GET")
	qrs.HandleFunc("/{id}/verify", qr.Verify).Methods("POST")
	qrs.HandleFunc("/{id}/printed", qr.MarkPrinted).Methods("POST")
	qrs.HandleFunc("/{id}/image", qr.Image).Methods("GET")

	// Installations
	ins := api.PathPrefix("/installations").Subrouter()
	ins.Use(middleware.RequirePermission("installations"))
	ins.HandleFunc("", installs.Create).Methods("POST")
	ins.HandleFunc("", installs.List).Methods("GET")
	ins.HandleFunc("/{id}", installs.Get).Methods("GET")
	ins.HandleFunc("/{id}/status", installs.UpdateStatus).Methods("PATCH")

	// Inspections (two-phase)
	insp := api.PathPrefix("/inspections").Subrouter()
	insp.Use(middleware.RequirePermission("inspections"))
	insp.HandleFunc("", inspections.Create).Methods("POST")
	insp.HandleFunc("", inspections.List).Methods("GET")
	insp.HandleFunc("/{id}/complete", inspections.Complete).Methods("POST")

	// Maintenance
	mnt := api.PathPrefix("/maintenance-records").Subrouter()
	mnt.Use(middleware.RequirePermission("maintenance_records"))
	mnt.HandleFunc("", maintenance.Create).Methods("POST")
	mnt.HandleFunc("", maintenance.List).Methods("GET")

	// Location hierarchy
	registerHierarchyRoutes(api, hierarchy)

	// Analysis reports
	an := api.PathPrefix("/analysis").Subrouter()
	an.Use(middleware.RequirePermission("analysis"))
	an.HandleFunc("/reports", analysis.Ingest).Methods("POST")
	an.HandleFunc("/reports/{code}", analysis.ListForCode).Methods("GET")

	// Mobile scan surface
	mob := api.PathPrefix("/mobile").Subrouter()
	mob.Use(middleware.RequirePermission("qr_codes"))
	mob.HandleFunc("/scan", mobile.Scan).Methods("POST")
	mob.HandleFunc("/decode", mobile.Decode).Methods("POST")

	// Exports
	exp := api.PathPrefix("/reports").Subrouter()
	exp.Use(middleware.RequirePermission("export"))
	exp.HandleFunc("/batches.xlsx", reports.ExportBatches).Methods("GET")
	exp.HandleFunc("/installations.xlsx", reports.ExportInstallations).Methods("GET")

	return r
}

func registerHierarchyRoutes(api *mux.Router, h *handlers.HierarchyHandler) {
	zones := api.PathPrefix("/zones").Subrouter()
	zones.Use(middleware.RequirePermission("zones"))
	zones.HandleFunc("", h.CreateZone).Methods("POST")
	zones.HandleFunc("", h.ListZones).Methods("GET")

	divs := api.PathPrefix("/divisions").Subrouter()
	divs.Use(middleware.RequirePermission("divisions"))
	divs.HandleFunc("", h.CreateDivision).Methods("POST")
	divs.HandleFunc("", h.ListDivisions).Methods("GET")

	stations := api.PathPrefix("/stations").Subrouter()
	stations.Use(middleware.RequirePermission("stations"))
	stations.HandleFunc("", h.CreateStation).Methods("POST")
	stations.HandleFunc("", h.ListStations).Methods("GET")
}

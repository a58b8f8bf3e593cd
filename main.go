package main

import (
	"os"
	"time"

	"github.com/cppla/recbox/config"
	"github.com/cppla/recbox/routes"
	"github.com/cppla/recbox/storage"
	"github.com/cppla/recbox/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		utils.Sugar.Fatalf("create storage dir %s: %v", cfg.StorageDir, err)
	}

	store, err := storage.NewRecordingStore(cfg.MetadataPath)
	if err != nil {
		utils.Sugar.Fatalf("open recording store: %v", err)
	}

	r := routes.SetupRouter(store)

	// Start background retention cleanup (best-effort)
	utils.StartRetentionCleaner(store, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

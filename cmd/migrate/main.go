package main

import (
	"log"

	"ai-docguard-be/internal/config"
	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Infra.DatabaseDSN == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	db, err := database.NewGormDBFromDSN(cfg.Infra.DatabaseDSN, sysLogger)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	sysLogger.Info("Migrate", "Running AutoMigrate", map[string]interface{}{"tables": []string{"session_events"}})

	if err := db.AutoMigrate(&entity.SessionEvent{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	sysLogger.Info("Migrate", "Migration completed", nil)
}

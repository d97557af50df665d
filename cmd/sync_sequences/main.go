package main

import (
	"log"

	"meeting-assistant/internal/config"
	"meeting-assistant/internal/database"
	"meeting-assistant/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.InitGorm(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	logger.Info("Syncing PostgreSQL sequences...")
	if err := database.SyncSequences(db, database.SerialTables, logger); err != nil {
		logger.Fatal("Sequence sync incomplete", zap.Error(err))
	}
	logger.Info("DONE!")
}

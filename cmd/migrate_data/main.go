package main

import (
	"log"

	"meeting-assistant/internal/config"
	"meeting-assistant/internal/database"
	"meeting-assistant/internal/logging"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Copies the local SQLite database at DB_PATH into the PostgreSQL
// database described by the DB_* variables.
func main() {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 1. Connect to SQLite (Source)
	sqliteDB, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to SQLite", zap.Error(err))
	}
	logger.Info("Connected to SQLite", zap.String("path", cfg.DBPath))

	// 2. Connect to PostgreSQL (Destination)
	cfg.DBDriver = "postgres"
	pgDB, err := database.InitGorm(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	logger.Info("Starting data migration...")
	copied, err := database.CopyAll(sqliteDB, pgDB, logger)
	if err != nil {
		logger.Fatal("Migration failed", zap.Error(err), zap.Any("copied", copied))
	}

	// 3. Serial ids were copied explicitly, move the sequences past them.
	if err := database.SyncSequences(pgDB, database.SerialTables, logger); err != nil {
		logger.Warn("Sequences not synced, run sync_sequences", zap.Error(err))
	}
	logger.Info("Migration completed!", zap.Any("copied", copied))
}

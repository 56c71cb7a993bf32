package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cutting-report-backend/internal/config"
	"cutting-report-backend/internal/database"
	"cutting-report-backend/internal/logger"
)

func main() {
	// 1. Load env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: File .env tidak ditemukan, menggunakan environment system (jika ada)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	// 2. Connect Database
	db, err := database.Connect(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect database", zap.Error(err))
	}

	// 3. Jalankan Migrasi
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}
	zapLogger.Info("Migration completed")

	// 4. Seed admin pertama
	created, err := database.SeedAdmin(db, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword)
	if err != nil {
		zapLogger.Fatal("Seeding admin failed", zap.Error(err))
	}
	if created {
		zapLogger.Info("Admin user created", zap.String("username", cfg.Seed.AdminUsername))
	}
}

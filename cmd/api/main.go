package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/config"
	"cutting-report-backend/internal/database"
	"cutting-report-backend/internal/logger"
	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/routes"
	"cutting-report-backend/internal/services"
)

func main() {
	// 1. LOAD .ENV DULUAN!
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
	zap.ReplaceGlobals(zapLogger)

	// 2. Connect Database
	db, err := database.Connect(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect database", zap.Error(err))
	}

	revoker := newRevoker(cfg, db, zapLogger)

	// ---------------------------------------------------------
	// 3. SETUP TEMPLATE ENGINE
	// ---------------------------------------------------------
	engine := html.New(cfg.Server.ViewsDir, ".html")
	engine.Reload(cfg.Server.Mode == "debug") // Auto reload html saat dev

	app := fiber.New(fiber.Config{
		Views:        engine,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AppName:      "cutting-report",
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zapLogger))

	svc := services.NewServices(db, zapLogger, services.Policy{
		AllowSelfValidation: cfg.Policy.AllowSelfValidation,
	})

	routes.SetupRoutes(app, routes.Deps{
		DB:       db,
		JWT:      cfg.JWT,
		Services: svc,
		Revoker:  revoker,
		Log:      zapLogger,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zapLogger.Info("Server berjalan", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			zapLogger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server exited")
}

// newRevoker prefers redis when configured and reachable, otherwise the
// revoked_tokens table.
func newRevoker(cfg *config.Config, db *gorm.DB, log *zap.Logger) middleware.TokenRevoker {
	dbRevoker := middleware.NewDBRevoker(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n, err := dbRevoker.Purge(ctx); err != nil {
		log.Warn("Purge revoked tokens failed", zap.Error(err))
	} else if n > 0 {
		log.Info("Purged expired revoked tokens", zap.Int64("count", n))
	}

	if !cfg.Redis.Enabled() {
		return dbRevoker
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, token revocation uses the database", zap.Error(err))
		return dbRevoker
	}
	log.Info("Token revocation uses redis", zap.String("addr", cfg.Redis.Addr))
	return middleware.NewRedisRevoker(rdb)
}

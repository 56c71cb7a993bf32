package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/config"
	"cutting-report-backend/internal/handlers"
	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

// Deps is everything the routes need.
type Deps struct {
	DB       *gorm.DB
	JWT      config.JWTConfig
	Services *services.Services
	Revoker  middleware.TokenRevoker
	Log      *zap.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	// ---------------------------------------------------------
	// HALAMAN WEB
	// ---------------------------------------------------------
	app.Get("/", handlers.Index)
	app.Get(middleware.InactivePath, handlers.AccountInactive)

	// ---------------------------------------------------------
	// API ENDPOINTS
	// ---------------------------------------------------------
	authHandler := handlers.NewAuthHandler(d.DB, d.JWT, d.Revoker, d.Log)

	api := app.Group("/api/v1")

	// === PUBLIC ROUTES ===
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "Running", "message": "API Ready"})
	})
	api.Post("/login", authHandler.Login)

	// === PROTECTED ROUTES (JWT + akun aktif) ===
	api.Use(middleware.JWTProtected(d.JWT.Secret, d.Revoker))
	api.Use(middleware.ActiveUserGuard(d.DB, d.Revoker, d.Log))

	api.Get("/me", authHandler.GetProfile)
	api.Post("/logout", authHandler.Logout)

	adminOnly := middleware.RoleProtected(models.RoleAdmin)

	// Admin Routes
	admin := api.Group("/admin", adminOnly)
	admin.Get("/users", handlers.GetUsers(d.DB))
	admin.Post("/users", handlers.CreateUser(d.DB, d.Log))
	admin.Put("/users/:id", handlers.UpdateUser(d.DB))
	admin.Patch("/users/:id/active", handlers.SetUserActive(d.DB, d.Log))

	// Master Data Routes (baca: semua role, tulis: admin)
	handlers.RegisterMasterData(api.Group("/master"), d.Services.MasterData, adminOnly)

	// Cutting Report Routes
	writers := middleware.RoleProtected(models.RoleOperator, models.RoleAdmin)
	validators := middleware.RoleProtected(models.RoleSupervisor, models.RoleAdmin)

	reports := api.Group("/reports")
	reports.Get("", handlers.GetReports(d.Services.Reports))
	reports.Post("", writers, handlers.CreateReport(d.Services.Reports))
	reports.Get("/export", handlers.ExportReports(d.Services.Export))
	reports.Get("/dashboard", handlers.GetDashboard(d.Services.Reports))
	reports.Get("/:id", handlers.GetReport(d.Services.Reports))
	reports.Put("/:id", writers, handlers.UpdateReport(d.Services.Reports))
	reports.Delete("/:id", writers, handlers.DeleteReport(d.Services.Reports))
	reports.Post("/:id/submit", writers, handlers.SubmitReport(d.Services.Reports))
	reports.Post("/:id/validate", validators, handlers.ValidateReport(d.Services.Reports))
	reports.Get("/:id/validations", handlers.GetReportValidations(d.Services.Reports))
	reports.Get("/:id/wastes", handlers.GetReportWastes(d.Services.Waste))
	reports.Post("/:id/wastes", writers, handlers.AddReportWaste(d.Services.Waste))
	reports.Get("/:id/wastes/summary", handlers.GetReportWasteSummary(d.Services.Waste))

	// Downtime Routes
	downtimes := api.Group("/downtimes")
	downtimes.Get("", handlers.GetDowntimes(d.Services.Downtime))
	downtimes.Post("", writers, handlers.StartDowntime(d.Services.Downtime))
	downtimes.Post("/:id/close", writers, handlers.CloseDowntime(d.Services.Downtime))
}

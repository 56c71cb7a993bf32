package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cutting-report-backend/internal/config"
	"cutting-report-backend/internal/database"
	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/routes"
	"cutting-report-backend/internal/services"
)

const (
	JWTSecret    = "cutting-report-test-secret"
	TestPassword = "secret123"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB       *gorm.DB
	App      *fiber.App
	Services *services.Services
	Revoker  middleware.TokenRevoker
	T        *testing.T
}

// SetupTestDB opens a fresh SQLite database in the test's temp dir and
// migrates every model. Foreign keys are not enforced by SQLite here, so delete
// policies are exercised purely by the services.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// NewServices builds the domain services on db with a no-op logger.
func NewServices(db *gorm.DB, policy services.Policy) *services.Services {
	return services.NewServices(db, zap.NewNop(), policy)
}

// NewApp builds the full fiber app on a fresh database.
func NewApp(t *testing.T, policy services.Policy) *TestEnv {
	t.Helper()
	db := SetupTestDB(t)
	svc := NewServices(db, policy)
	revoker := middleware.NewDBRevoker(db)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Deps{
		DB:       db,
		JWT:      config.JWTConfig{Secret: JWTSecret, Expire: time.Hour},
		Services: svc,
		Revoker:  revoker,
		Log:      zap.NewNop(),
	})
	return &TestEnv{DB: db, App: app, Services: svc, Revoker: revoker, T: t}
}

// TestToken creates a valid JWT for user.
func TestToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.GenerateJWT(JWTSecret, time.Hour, user.ID, user.Role)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// DoRequest executes an HTTP request against the test app
func (e *TestEnv) DoRequest(method, path string, body interface{}, token string) *http.Response {
	e.T.Helper()
	var reqBody io.Reader = http.NoBody
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("Failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.App.Test(req, -1)
	if err != nil {
		e.T.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseResponse decodes a JSON object body.
func ParseResponse(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return result
}

// SeedUser creates an active user with TestPassword.
func SeedUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &models.User{
		Username: username,
		Nama:     username,
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// Fixture is one row of every master data entity.
type Fixture struct {
	Shift    *models.Shift
	Machine  *models.CuttingMachine
	Fabric   *models.FabricType
	Line     *models.ProductionLine
	Customer *models.Customer
	Pattern  *models.Pattern
}

// SeedMasterData creates a shift of 08:00-16:00 with a 60 minute break, a
// machine, a fabric priced at 25000 per meter, a line, a customer and a
// pattern.
func SeedMasterData(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{
		Shift: &models.Shift{
			NamaShift:      "Pagi",
			JamMulai:       "08:00",
			JamSelesai:     "16:00",
			DurasiMenit:    480,
			WaktuIstirahat: []models.BreakWindow{{Mulai: "12:00", Selesai: "13:00"}},
			Status:         models.StatusActive,
		},
		Machine: &models.CuttingMachine{
			KodeMesin:      "MC-01",
			NamaMesin:      "Straight Knife 1",
			TipeMesin:      "straight_knife",
			KapasitasLayer: 80,
			Status:         models.StatusActive,
		},
		Fabric: &models.FabricType{
			KodeKain:      "CTN-30S",
			NamaKain:      "Cotton Combed 30s",
			Kategori:      "cotton",
			HargaPerMeter: 25000,
			Status:        models.StatusActive,
		},
		Line: &models.ProductionLine{
			KodeLine: "L-01",
			NamaLine: "Line 1",
			Status:   models.StatusActive,
		},
		Customer: &models.Customer{
			KodeCustomer: "CUST-01",
			NamaCustomer: "PT Garmen Jaya",
			Status:       models.StatusActive,
		},
		Pattern: &models.Pattern{
			KodePattern: "PT-TS-01",
			NamaPattern: "T-Shirt Basic",
			Status:      models.StatusActive,
		},
	}
	for _, rec := range []any{f.Shift, f.Machine, f.Fabric, f.Line, f.Customer, f.Pattern} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("Failed to seed master data: %v", err)
		}
	}
	return f
}

package services_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
	"cutting-report-backend/internal/testutil"
)

type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	svc        *services.Services
	master     *testutil.Fixture
	operator   *models.User
	supervisor *models.User
}

func setup(t *testing.T, policy services.Policy) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &fixture{
		ctx:        context.Background(),
		db:         db,
		svc:        testutil.NewServices(db, policy),
		master:     testutil.SeedMasterData(t, db),
		operator:   testutil.SeedUser(t, db, "operator1", models.RoleOperator),
		supervisor: testutil.SeedUser(t, db, "supervisor1", models.RoleSupervisor),
	}
}

// reportRequest is 10 layers of 100 m on the fixture's shift, machine and
// fabric, dated 2024-03-01.
func (f *fixture) reportRequest() services.CreateReportRequest {
	return services.CreateReportRequest{
		ReportRequest: services.ReportRequest{
			Tanggal:          "2024-03-01",
			ShiftID:          f.master.Shift.ID,
			MesinID:          f.master.Machine.ID,
			JenisKainID:      f.master.Fabric.ID,
			JumlahLayer:      10,
			PanjangKainMeter: 100,
			LebarKainCm:      150,
			TargetQtyPcs:     1000,
			ActualQtyPcs:     900,
			JumlahCacat:      45,
			Details: []services.DetailRequest{
				{NamaPattern: "Body depan", Ukuran: "M", Warna: "Hitam", JumlahPotongan: 500, EfisiensiMarkerPersen: 82},
				{NamaPattern: "Body belakang", Ukuran: "M", Warna: "Hitam", JumlahPotongan: 500, EfisiensiMarkerPersen: 86},
			},
		},
	}
}

func (f *fixture) createReport(t *testing.T) *models.CuttingReport {
	t.Helper()
	report, err := f.svc.Reports.Create(f.ctx, f.reportRequest(), f.operator.ID)
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return report
}

func (f *fixture) submit(t *testing.T, id uint) *models.CuttingReport {
	t.Helper()
	report, err := f.svc.Reports.Submit(f.ctx, id, nil)
	if err != nil {
		t.Fatalf("submit report %d: %v", id, err)
	}
	return report
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperror.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %q: %v", kind, got, err)
	}
}

func count(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func intPtr(v int) *int { return &v }

package services_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
	"cutting-report-backend/internal/testutil"
)

func TestCreateSubmitRejectScenario(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := services.NewServices(db, zap.NewNop(), services.Policy{})
	u1 := testutil.SeedUser(t, db, "u1", models.RoleOperator)
	u2 := testutil.SeedUser(t, db, "u2", models.RoleSupervisor)

	shift := &models.Shift{NamaShift: "Pagi", JamMulai: "06:00", JamSelesai: "14:00", DurasiMenit: 480}
	if err := svc.MasterData.Shifts.Create(ctx, shift); err != nil {
		t.Fatalf("create shift: %v", err)
	}
	machine := &models.CuttingMachine{KodeMesin: "M01", NamaMesin: "Mesin 01"}
	if err := svc.MasterData.Machines.Create(ctx, machine); err != nil {
		t.Fatalf("create machine: %v", err)
	}
	fabric := &models.FabricType{KodeKain: "F01", NamaKain: "Kain 01"}
	if err := svc.MasterData.Fabrics.Create(ctx, fabric); err != nil {
		t.Fatalf("create fabric: %v", err)
	}

	report, err := svc.Reports.Create(ctx, services.CreateReportRequest{ReportRequest: services.ReportRequest{
		Tanggal:          "2024-03-01",
		ShiftID:          shift.ID,
		MesinID:          machine.ID,
		JenisKainID:      fabric.ID,
		JumlahLayer:      10,
		PanjangKainMeter: 100.0,
	}}, u1.ID)
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if report.StatusLaporan != models.ReportDraft {
		t.Errorf("status = %s, want draft", report.StatusLaporan)
	}
	if report.TotalYard != models.TotalYard(100, 10) || report.TotalYard <= 0 {
		t.Errorf("total_yard = %v", report.TotalYard)
	}
	if report.KualitasHasil != models.QualityGood || report.KondisiMesin != models.ConditionGood {
		t.Errorf("defaults not applied: %s / %s", report.KualitasHasil, report.KondisiMesin)
	}
	if report.NomorLaporan != "CUT-20240301-0001" {
		t.Errorf("nomor_laporan = %s", report.NomorLaporan)
	}

	submitted, err := svc.Reports.Submit(ctx, report.ID, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.StatusLaporan != models.ReportSubmitted {
		t.Fatalf("status after submit = %s", submitted.StatusLaporan)
	}

	record, err := svc.Reports.Validate(ctx, report.ID, services.ValidateRequest{
		Hasil:   models.OutcomeRejected,
		Catatan: "panjang kain tidak sesuai",
	}, u2.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if record.Hasil != models.OutcomeRejected || record.VersiLaporan != submitted.Version {
		t.Errorf("record = %+v", record)
	}

	got, err := svc.Reports.Get(ctx, report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StatusLaporan != models.ReportRejected {
		t.Errorf("status after reject = %s", got.StatusLaporan)
	}
	history, err := svc.Reports.History(ctx, report.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Hasil != models.OutcomeRejected {
		t.Fatalf("history = %+v", history)
	}

	_, err = svc.Reports.Validate(ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, u2.ID)
	requireKind(t, err, apperror.KindConflict)
}

func TestCreateReportComputesMetrics(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)

	if report.UtilisasiKainPersen == nil || *report.UtilisasiKainPersen != 84 {
		t.Errorf("utilisasi = %v, want 84", report.UtilisasiKainPersen)
	}
	if len(report.Details) != 2 {
		t.Fatalf("details = %d, want 2", len(report.Details))
	}
	if report.Details[0].MetodeCutting != models.MethodMachine {
		t.Errorf("metode default = %s", report.Details[0].MetodeCutting)
	}
	if report.Metrics == nil {
		t.Fatal("performance metrics not stored")
	}
	// 420 planned minutes, no downtime, 900/1000 pcs, 45 defects
	if report.Metrics.AvailabilityPersen != 100 || report.Metrics.PerformancePersen != 90 || report.Metrics.QualityPersen != 95 {
		t.Errorf("metrics = %+v", report.Metrics)
	}
	if report.Version != 1 {
		t.Errorf("version = %d, want 1", report.Version)
	}
}

func TestCreateReportWithWastes(t *testing.T) {
	f := setup(t, services.Policy{})
	req := f.reportRequest()
	loss := 1000.0
	req.Wastes = []services.WasteRequest{
		{JenisWaste: models.WasteOffcut, JumlahMeter: 4},
		{JenisWaste: models.WasteFabricDefect, JumlahMeter: 1.5, EstimasiKerugian: &loss},
	}
	report, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(report.Wastes) != 2 {
		t.Fatalf("wastes = %d", len(report.Wastes))
	}
	if report.Wastes[0].EstimasiKerugian != 100000 {
		t.Errorf("default loss = %v, want 4 x 25000", report.Wastes[0].EstimasiKerugian)
	}
	if report.Wastes[1].EstimasiKerugian != 1000 {
		t.Errorf("explicit loss = %v", report.Wastes[1].EstimasiKerugian)
	}
}

func TestCreateReportMissingReferenceWritesNothing(t *testing.T) {
	f := setup(t, services.Policy{})

	req := f.reportRequest()
	req.ShiftID = 9999
	req.Wastes = []services.WasteRequest{{JenisWaste: models.WasteOffcut, JumlahMeter: 1}}
	_, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	requireKind(t, err, apperror.KindNotFound)

	req = f.reportRequest()
	customer := uint(4242)
	req.CustomerID = &customer
	_, err = f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	requireKind(t, err, apperror.KindNotFound)

	for _, model := range []any{&models.CuttingReport{}, &models.CuttingDetail{}, &models.MaterialWaste{}, &models.PerformanceMetrics{}} {
		if n := count(t, f.db, model, ""); n != 0 {
			t.Errorf("%T rows = %d, want 0", model, n)
		}
	}
}

func TestCreateReportValidation(t *testing.T) {
	f := setup(t, services.Policy{})

	req := f.reportRequest()
	req.Tanggal = "01/03/2024"
	_, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	requireKind(t, err, apperror.KindValidation)

	req = f.reportRequest()
	req.JumlahLayer = -1
	req.Details[1].EfisiensiMarkerPersen = 120
	_, err = f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	requireKind(t, err, apperror.KindValidation)
	appErr := err.(*apperror.Error)
	for _, field := range []string{"jumlah_layer", "details[1].efisiensi_marker_persen"} {
		if _, ok := appErr.Fields[field]; !ok {
			t.Errorf("missing field %q in %v", field, appErr.Fields)
		}
	}

	req = f.reportRequest()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	req.WaktuMulai, req.WaktuSelesai = &start, &end
	_, err = f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	requireKind(t, err, apperror.KindValidation)
}

func TestReportNumberSequence(t *testing.T) {
	f := setup(t, services.Policy{})
	first := f.createReport(t)
	second := f.createReport(t)

	req := f.reportRequest()
	req.Tanggal = "2024-03-02"
	other, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.NomorLaporan != "CUT-20240301-0001" || second.NomorLaporan != "CUT-20240301-0002" {
		t.Errorf("numbers = %s, %s", first.NomorLaporan, second.NomorLaporan)
	}
	if other.NomorLaporan != "CUT-20240302-0001" {
		t.Errorf("next day number = %s", other.NomorLaporan)
	}

	if err := f.svc.Reports.Delete(f.ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third := f.createReport(t)
	if third.NomorLaporan != "CUT-20240301-0003" {
		t.Errorf("number after delete = %s, want no reuse", third.NomorLaporan)
	}

	// the newest number of the day is not issued again either
	if err := f.svc.Reports.Delete(f.ctx, third.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	fourth := f.createReport(t)
	if fourth.NomorLaporan != "CUT-20240301-0004" {
		t.Errorf("number after deleting newest = %s, want CUT-20240301-0004", fourth.NomorLaporan)
	}
}

func TestReportNumberContinuesPastExisting(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)

	// a date without a counter row starts after the highest stored number,
	// compared as a number and not as text
	err := f.db.Model(&models.CuttingReport{}).Where("id = ?", report.ID).
		Updates(map[string]any{"nomor_laporan": "CUT-20240309-10000", "tanggal": time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)}).Error
	if err != nil {
		t.Fatalf("renumber: %v", err)
	}
	req := f.reportRequest()
	req.Tanggal = "2024-03-09"
	next, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.NomorLaporan != "CUT-20240309-10001" {
		t.Errorf("nomor_laporan = %s, want CUT-20240309-10001", next.NomorLaporan)
	}

	// the 2024-03-01 counter keeps counting after its report moved away
	if again := f.createReport(t); again.NomorLaporan != "CUT-20240301-0002" {
		t.Errorf("same-day counter = %s", again.NomorLaporan)
	}
}

func TestReportNumberCollisionIsConflict(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)

	// a stored number the counter has not issued yet
	err := f.db.Model(&models.CuttingReport{}).Where("id = ?", report.ID).
		Update("nomor_laporan", "CUT-20240301-0002").Error
	if err != nil {
		t.Fatalf("renumber: %v", err)
	}

	_, err = f.svc.Reports.Create(f.ctx, f.reportRequest(), f.operator.ID)
	requireKind(t, err, apperror.KindConflict)
	if n := count(t, f.db, &models.CuttingReport{}, ""); n != 1 {
		t.Errorf("report rows = %d, want 1", n)
	}
}

func TestSubmitRequiresQuantities(t *testing.T) {
	f := setup(t, services.Policy{})
	req := f.reportRequest()
	req.JumlahLayer = 0
	req.PanjangKainMeter = 0
	report, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Reports.Submit(f.ctx, report.ID, nil)
	requireKind(t, err, apperror.KindValidation)
	fields := err.(*apperror.Error).Fields
	if _, ok := fields["jumlah_layer"]; !ok {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["panjang_kain_meter"]; !ok {
		t.Errorf("fields = %v", fields)
	}

	got, _ := f.svc.Reports.Get(f.ctx, report.ID)
	if got.StatusLaporan != models.ReportDraft {
		t.Errorf("status = %s, want draft", got.StatusLaporan)
	}
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)

	_, err := f.svc.Reports.Submit(f.ctx, report.ID, nil)
	requireKind(t, err, apperror.KindConflict)
}

func TestValidateRequiresSubmitted(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)

	_, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, f.supervisor.ID)
	requireKind(t, err, apperror.KindConflict)

	f.submit(t, report.ID)
	if _, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, f.supervisor.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeRejected}, f.supervisor.ID)
	requireKind(t, err, apperror.KindConflict)

	_, err = f.svc.Reports.Update(f.ctx, report.ID, f.reportRequest().ReportRequest)
	requireKind(t, err, apperror.KindConflict)
	requireKind(t, f.svc.Reports.Delete(f.ctx, report.ID), apperror.KindConflict)
}

func TestValidateUnknownOutcome(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)

	_, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: "maybe"}, f.supervisor.ID)
	requireKind(t, err, apperror.KindValidation)

	_, err = f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeNeedsRevision}, f.supervisor.ID)
	requireKind(t, err, apperror.KindValidation)
}

func TestSelfValidationPolicy(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)

	_, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, f.operator.ID)
	requireKind(t, err, apperror.KindAuthz)
	if n := count(t, f.db, &models.ValidationRecord{}, ""); n != 0 {
		t.Errorf("validation records = %d, want 0", n)
	}

	allowed := setup(t, services.Policy{AllowSelfValidation: true})
	own := allowed.createReport(t)
	allowed.submit(t, own.ID)
	if _, err := allowed.svc.Reports.Validate(allowed.ctx, own.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, allowed.operator.ID); err != nil {
		t.Fatalf("self validation with policy on: %v", err)
	}
}

func TestRevisionCycle(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)

	_, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{
		Hasil: models.OutcomeNeedsRevision,
		PermintaanRevisi: []models.RevisionRequest{
			{Field: "jumlah_layer", Pesan: "jumlah layer seharusnya 12"},
		},
	}, f.supervisor.ID)
	if err != nil {
		t.Fatalf("needs_revision: %v", err)
	}
	got, _ := f.svc.Reports.Get(f.ctx, report.ID)
	if got.StatusLaporan != models.ReportDraft {
		t.Fatalf("status = %s, want draft", got.StatusLaporan)
	}

	req := f.reportRequest().ReportRequest
	req.JumlahLayer = 12
	req.Details = req.Details[:1]
	updated, err := f.svc.Reports.Update(f.ctx, report.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalYard != models.TotalYard(100, 12) {
		t.Errorf("total_yard = %v", updated.TotalYard)
	}
	if len(updated.Details) != 1 {
		t.Errorf("details = %d, want replaced by 1", len(updated.Details))
	}
	if n := count(t, f.db, &models.CuttingDetail{}, "laporan_id = ?", report.ID); n != 1 {
		t.Errorf("detail rows = %d", n)
	}

	f.submit(t, report.ID)
	if _, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeApproved}, f.supervisor.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	history, err := f.svc.Reports.History(f.ctx, report.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Hasil != models.OutcomeApproved || history[1].Hasil != models.OutcomeNeedsRevision {
		t.Fatalf("history = %+v", history)
	}
	if len(history[1].PermintaanRevisi) != 1 || history[1].PermintaanRevisi[0].Field != "jumlah_layer" {
		t.Errorf("revision requests = %+v", history[1].PermintaanRevisi)
	}
	if history[0].Validator == nil || history[0].Validator.ID != f.supervisor.ID {
		t.Errorf("validator not loaded")
	}
}

func TestEditRejectedReturnsToDraft(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)
	if _, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{Hasil: models.OutcomeRejected}, f.supervisor.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	updated, err := f.svc.Reports.Update(f.ctx, report.ID, f.reportRequest().ReportRequest)
	if err != nil {
		t.Fatalf("update rejected: %v", err)
	}
	if updated.StatusLaporan != models.ReportDraft {
		t.Errorf("status = %s, want draft", updated.StatusLaporan)
	}
}

func TestOptimisticConcurrency(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)

	req := f.reportRequest().ReportRequest
	req.Version = intPtr(report.Version)
	updated, err := f.svc.Reports.Update(f.ctx, report.ID, req)
	if err != nil {
		t.Fatalf("update with current version: %v", err)
	}
	if updated.Version != report.Version+1 {
		t.Fatalf("version = %d, want %d", updated.Version, report.Version+1)
	}

	// a second editor still holding the old version
	stale := f.reportRequest().ReportRequest
	stale.Version = intPtr(report.Version)
	_, err = f.svc.Reports.Update(f.ctx, report.ID, stale)
	requireKind(t, err, apperror.KindConflict)

	_, err = f.svc.Reports.Submit(f.ctx, report.ID, intPtr(report.Version))
	requireKind(t, err, apperror.KindConflict)

	submitted, err := f.svc.Reports.Submit(f.ctx, report.ID, intPtr(updated.Version))
	if err != nil {
		t.Fatalf("submit with current version: %v", err)
	}
	_, err = f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{
		Hasil:   models.OutcomeApproved,
		Version: intPtr(updated.Version),
	}, f.supervisor.ID)
	requireKind(t, err, apperror.KindConflict)

	if _, err := f.svc.Reports.Validate(f.ctx, report.ID, services.ValidateRequest{
		Hasil:   models.OutcomeApproved,
		Version: intPtr(submitted.Version),
	}, f.supervisor.ID); err != nil {
		t.Fatalf("validate with current version: %v", err)
	}
}

func TestDeleteReportCascades(t *testing.T) {
	f := setup(t, services.Policy{})
	req := f.reportRequest()
	req.Wastes = []services.WasteRequest{{JenisWaste: models.WasteOffcut, JumlahMeter: 2}}
	report, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	dt, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		LaporanID:     &report.ID,
		JenisDowntime: models.DowntimeSetup,
	})
	if err != nil {
		t.Fatalf("start downtime: %v", err)
	}

	if err := f.svc.Reports.Delete(f.ctx, report.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, model := range []any{&models.CuttingDetail{}, &models.MaterialWaste{}, &models.PerformanceMetrics{}} {
		if n := count(t, f.db, model, "laporan_id = ?", report.ID); n != 0 {
			t.Errorf("%T rows left = %d", model, n)
		}
	}
	var kept models.MachineDowntime
	if err := f.db.First(&kept, dt.ID).Error; err != nil {
		t.Fatalf("downtime removed with report: %v", err)
	}
	if kept.LaporanID != nil {
		t.Errorf("downtime laporan_id = %v, want nil", *kept.LaporanID)
	}

	_, err = f.svc.Reports.Get(f.ctx, report.ID)
	requireKind(t, err, apperror.KindNotFound)
	requireKind(t, f.svc.Reports.Delete(f.ctx, report.ID), apperror.KindNotFound)
}

func TestDeleteSubmittedReportRefused(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	f.submit(t, report.ID)
	requireKind(t, f.svc.Reports.Delete(f.ctx, report.ID), apperror.KindConflict)
}

func TestListReports(t *testing.T) {
	f := setup(t, services.Policy{})
	a := f.createReport(t)
	f.createReport(t)
	f.submit(t, a.ID)

	all, total, err := f.svc.Reports.List(f.ctx, services.ReportFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(all))
	}

	submitted, total, err := f.svc.Reports.List(f.ctx, services.ReportFilter{Status: string(models.ReportSubmitted)})
	if err != nil {
		t.Fatalf("list submitted: %v", err)
	}
	if total != 1 || submitted[0].ID != a.ID {
		t.Fatalf("submitted list = %+v", submitted)
	}
	if submitted[0].Shift == nil || submitted[0].Operator == nil {
		t.Errorf("associations not preloaded")
	}

	page, total, err := f.svc.Reports.List(f.ctx, services.ReportFilter{Paging: services.Paging{Page: 2, PerPage: 1}})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if total != 2 || len(page) != 1 {
		t.Errorf("page 2 = %d rows of %d", len(page), total)
	}

	_, total, err = f.svc.Reports.List(f.ctx, services.ReportFilter{OperatorID: f.supervisor.ID})
	if err != nil || total != 0 {
		t.Errorf("operator filter total = %d err = %v", total, err)
	}
}

func TestDashboard(t *testing.T) {
	f := setup(t, services.Policy{})
	req := f.reportRequest()
	req.Wastes = []services.WasteRequest{{JenisWaste: models.WasteOffcut, JumlahMeter: 3}}
	a, err := f.svc.Reports.Create(f.ctx, req, f.operator.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.createReport(t)
	f.submit(t, a.ID)

	summary, err := f.svc.Reports.Dashboard(f.ctx, nil, nil)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.TotalLaporan != 2 || summary.PerStatus["draft"] != 1 || summary.PerStatus["submitted"] != 1 {
		t.Errorf("counts = %+v", summary)
	}
	if want := 2 * models.TotalYard(100, 10); summary.TotalYard < want-0.01 || summary.TotalYard > want+0.01 {
		t.Errorf("total yard = %v, want %v", summary.TotalYard, want)
	}
	if summary.TotalWasteMeter != 3 || summary.TotalKerugianWaste != 75000 {
		t.Errorf("waste = %v / %v", summary.TotalWasteMeter, summary.TotalKerugianWaste)
	}
	if summary.RataRataOEE <= 0 {
		t.Errorf("average oee = %v", summary.RataRataOEE)
	}
}

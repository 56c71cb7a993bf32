package services_test

import (
	"testing"
	"time"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

func machineStatus(t *testing.T, f *fixture) models.RecordStatus {
	t.Helper()
	m, err := f.svc.MasterData.Machines.Get(f.ctx, f.master.Machine.ID)
	if err != nil {
		t.Fatalf("get machine: %v", err)
	}
	return m.Status
}

func TestDowntimeBreakdownCycle(t *testing.T) {
	f := setup(t, services.Policy{})
	report := f.createReport(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	dt, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		LaporanID:     &report.ID,
		JenisDowntime: models.DowntimeBreakdown,
		WaktuMulai:    &start,
		Deskripsi:     "pisau macet",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !dt.IsOpen() {
		t.Fatal("new downtime must be open")
	}
	if got := machineStatus(t, f); got != models.StatusBroken {
		t.Errorf("machine status = %s, want broken", got)
	}

	_, err = f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		JenisDowntime: models.DowntimeSetup,
	})
	requireKind(t, err, apperror.KindConflict)

	early := start.Add(-time.Minute)
	_, err = f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{WaktuSelesai: &early})
	requireKind(t, err, apperror.KindValidation)

	end := start.Add(42 * time.Minute)
	cost := 350000.0
	closed, err := f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{
		WaktuSelesai:   &end,
		Teknisi:        "Budi",
		BiayaPerbaikan: &cost,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.DurasiMenit == nil || *closed.DurasiMenit != 42 {
		t.Errorf("durasi = %v, want 42", closed.DurasiMenit)
	}
	if closed.Teknisi != "Budi" || closed.BiayaPerbaikan != cost {
		t.Errorf("closed = %+v", closed)
	}
	if got := machineStatus(t, f); got != models.StatusActive {
		t.Errorf("machine status = %s, want active", got)
	}

	got, err := f.svc.Reports.Get(f.ctx, report.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	// 42 of 420 planned minutes lost
	if got.Metrics == nil || got.Metrics.DowntimeMenit != 42 || got.Metrics.AvailabilityPersen != 90 {
		t.Errorf("metrics = %+v", got.Metrics)
	}

	_, err = f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{WaktuSelesai: &end})
	requireKind(t, err, apperror.KindConflict)
}

func TestDowntimeSetupLeavesMachineStatus(t *testing.T) {
	f := setup(t, services.Policy{})
	dt, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		JenisDowntime: models.DowntimeSetup,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := machineStatus(t, f); got != models.StatusActive {
		t.Errorf("machine status = %s, want active", got)
	}
	if _, err := f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{}); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDowntimeStartValidation(t *testing.T) {
	f := setup(t, services.Policy{})

	_, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{MesinID: 999, JenisDowntime: models.DowntimeOther})
	requireKind(t, err, apperror.KindNotFound)

	missing := uint(999)
	_, err = f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		LaporanID:     &missing,
		JenisDowntime: models.DowntimeOther,
	})
	requireKind(t, err, apperror.KindNotFound)

	_, err = f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{MesinID: f.master.Machine.ID, JenisDowntime: "coffee"})
	requireKind(t, err, apperror.KindValidation)

	_, err = f.svc.Downtime.Close(f.ctx, 999, services.CloseDowntimeRequest{})
	requireKind(t, err, apperror.KindNotFound)
}

func TestDowntimeList(t *testing.T) {
	f := setup(t, services.Policy{})
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	first, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID: f.master.Machine.ID, JenisDowntime: models.DowntimeBladeChange, WaktuMulai: &start,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	end := start.Add(10 * time.Minute)
	if _, err := f.svc.Downtime.Close(f.ctx, first.ID, services.CloseDowntimeRequest{WaktuSelesai: &end}); err != nil {
		t.Fatalf("close: %v", err)
	}
	later := start.Add(time.Hour)
	second, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID: f.master.Machine.ID, JenisDowntime: models.DowntimeBreak, WaktuMulai: &later,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	all, total, err := f.svc.Downtime.List(f.ctx, services.DowntimeFilter{MesinID: f.master.Machine.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || all[0].ID != second.ID || all[0].Mesin == nil {
		t.Errorf("list = %+v", all)
	}

	open, total, err := f.svc.Downtime.List(f.ctx, services.DowntimeFilter{OpenOnly: true})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 1 || open[0].ID != second.ID {
		t.Errorf("open list = %+v", open)
	}
}

func TestDowntimeKeepsDeactivatedMachine(t *testing.T) {
	f := setup(t, services.Policy{})

	dt, err := f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		JenisDowntime: models.DowntimeBreakdown,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.MasterData.Machines.Deactivate(f.ctx, f.master.Machine.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := machineStatus(t, f); got != models.StatusInactive {
		t.Errorf("machine status after close = %s, want inactive", got)
	}

	// a new maintenance window does not bring it back either
	dt, err = f.svc.Downtime.Start(f.ctx, services.StartDowntimeRequest{
		MesinID:       f.master.Machine.ID,
		JenisDowntime: models.DowntimeScheduledMaintenance,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := machineStatus(t, f); got != models.StatusInactive {
		t.Errorf("machine status after start = %s, want inactive", got)
	}
	if _, err := f.svc.Downtime.Close(f.ctx, dt.ID, services.CloseDowntimeRequest{}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := machineStatus(t, f); got != models.StatusInactive {
		t.Errorf("machine status = %s, want inactive", got)
	}
}

package models

import (
	"errors"
	"testing"
	"time"
)

func TestDowntimeClose(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d := StartDowntime(1, DowntimeBreakdown, start)
	if !d.IsOpen() {
		t.Fatal("new downtime must be open")
	}

	if err := d.Close(start.Add(-time.Minute)); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("close before start: err = %v", err)
	}
	if !d.IsOpen() {
		t.Fatal("failed close must leave the window open")
	}

	if err := d.Close(start.Add(95 * time.Minute)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.DurasiMenit == nil || *d.DurasiMenit != 95 {
		t.Fatalf("DurasiMenit = %v, want 95", d.DurasiMenit)
	}
	if err := d.Close(start.Add(2 * time.Hour)); !errors.Is(err, ErrDowntimeClosed) {
		t.Fatalf("second close: err = %v", err)
	}
}

func TestDowntimeMachineStatus(t *testing.T) {
	tests := map[DowntimeType]RecordStatus{
		DowntimeBreakdown:              StatusBroken,
		DowntimeScheduledMaintenance:   StatusMaintenance,
		DowntimeUnscheduledMaintenance: StatusMaintenance,
		DowntimeSetup:                  "",
		DowntimeBreak:                  "",
	}
	for typ, want := range tests {
		if got := typ.MachineStatus(); got != want {
			t.Errorf("%s.MachineStatus() = %q, want %q", typ, got, want)
		}
	}
}

func TestShiftPlannedMinutes(t *testing.T) {
	day := Shift{JamMulai: "08:00", JamSelesai: "16:00", DurasiMenit: 480,
		WaktuIstirahat: []BreakWindow{{Mulai: "12:00", Selesai: "13:00"}, {Mulai: "10:00", Selesai: "10:15"}}}
	if got := day.PlannedMinutes(); got != 405 {
		t.Errorf("day shift planned = %d, want 405", got)
	}

	night := Shift{JamMulai: "22:00", JamSelesai: "06:00",
		WaktuIstirahat: []BreakWindow{{Mulai: "23:45", Selesai: "00:15"}}}
	if got := night.PlannedMinutes(); got != 450 {
		t.Errorf("night shift planned = %d, want 450", got)
	}
}

func TestComputePerformance(t *testing.T) {
	shift := &Shift{JamMulai: "08:00", JamSelesai: "16:00", DurasiMenit: 480,
		WaktuIstirahat: []BreakWindow{{Mulai: "12:00", Selesai: "13:00"}}}
	r := &CuttingReport{
		ID:               7,
		PanjangKainMeter: 100,
		JumlahLayer:      10,
		TargetQtyPcs:     1000,
		ActualQtyPcs:     900,
		JumlahCacat:      45,
	}
	r.ComputeDerivedMetrics()

	m := ComputePerformance(r, shift, 42)
	if m.LaporanID != 7 {
		t.Errorf("LaporanID = %d", m.LaporanID)
	}
	if !almostEqual(m.AvailabilityPersen, 90) {
		t.Errorf("availability = %v, want 90", m.AvailabilityPersen)
	}
	if !almostEqual(m.PerformancePersen, 90) {
		t.Errorf("performance = %v, want 90", m.PerformancePersen)
	}
	if !almostEqual(m.QualityPersen, 95) {
		t.Errorf("quality = %v, want 95", m.QualityPersen)
	}
	if !almostEqual(m.OEEPersen, 76.95) {
		t.Errorf("oee = %v, want 76.95", m.OEEPersen)
	}
	if m.DowntimeMenit != 42 {
		t.Errorf("downtime = %d", m.DowntimeMenit)
	}
}

func TestComputePerformanceCapsAt100(t *testing.T) {
	r := &CuttingReport{TargetQtyPcs: 100, ActualQtyPcs: 150}
	m := ComputePerformance(r, &Shift{DurasiMenit: 480}, 0)
	if m.PerformancePersen != 100 || m.AvailabilityPersen != 100 || m.QualityPersen != 100 {
		t.Errorf("metrics not capped: %+v", m)
	}
	if m.OEEPersen != 100 {
		t.Errorf("oee = %v, want 100", m.OEEPersen)
	}
}

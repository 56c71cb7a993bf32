package models

import (
	"time"

	"gorm.io/datatypes"
)

// RevisionRequest is one correction asked by a validator. It is echoed back to
// the operator and never interpreted.
type RevisionRequest struct {
	Field string `json:"field" validate:"required"`
	Pesan string `json:"pesan" validate:"required"`
}

// ValidationRecord is an append-only audit entry of a supervisor decision.
type ValidationRecord struct {
	ID               uint                                 `gorm:"primaryKey" json:"id"`
	LaporanID        uint                                 `gorm:"not null;index" json:"laporan_id"`
	ValidatorID      uint                                 `gorm:"not null;index" json:"validator_id"`
	Validator        *User                                `gorm:"foreignKey:ValidatorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"validator,omitempty"`
	Hasil            ValidationOutcome                    `gorm:"size:20;not null;index" json:"hasil"`
	Catatan          string                               `gorm:"type:text" json:"catatan"`
	PermintaanRevisi datatypes.JSONSlice[RevisionRequest] `json:"permintaan_revisi"`
	WaktuValidasi    time.Time                            `gorm:"not null" json:"waktu_validasi"`
	// VersiLaporan is the report version that was submitted and judged.
	VersiLaporan int       `gorm:"not null" json:"versi_laporan"`
	CreatedAt    time.Time `json:"created_at"`
}

// ==========================================
// PERFORMANCE METRICS
// ==========================================

type PerformanceMetrics struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	LaporanID            uint      `gorm:"not null;uniqueIndex" json:"laporan_id"`
	OEEPersen            float64   `gorm:"column:oee_persen" json:"oee_persen"`
	AvailabilityPersen   float64   `json:"availability_persen"`
	PerformancePersen    float64   `json:"performance_persen"`
	QualityPersen        float64   `json:"quality_persen"`
	ThroughputYardPerJam float64   `json:"throughput_yard_per_jam"`
	DowntimeMenit        int       `json:"downtime_menit"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ComputePerformance derives OEE figures for a report.
//
// Availability is run time over the shift's planned time (duration minus
// breaks); performance is actual over target pieces (falling back to yards);
// quality is good pieces over actual pieces. Each is capped to 0..100.
func ComputePerformance(r *CuttingReport, shift *Shift, downtimeMinutes int) PerformanceMetrics {
	planned := 0
	if shift != nil {
		planned = shift.PlannedMinutes()
	}
	if planned == 0 && r.DurasiMenit != nil {
		planned = *r.DurasiMenit
	}

	availability := 100.0
	runMinutes := float64(planned - downtimeMinutes)
	if planned > 0 {
		availability = clamp(runMinutes/float64(planned)*100, 0, 100)
	}

	performance := 100.0
	switch {
	case r.TargetQtyPcs > 0:
		performance = clamp(float64(r.ActualQtyPcs)/float64(r.TargetQtyPcs)*100, 0, 100)
	case r.TargetYard != nil && *r.TargetYard > 0:
		performance = clamp(r.TotalYard / *r.TargetYard * 100, 0, 100)
	}

	quality := 100.0
	if r.ActualQtyPcs > 0 {
		quality = clamp(float64(r.ActualQtyPcs-r.JumlahCacat)/float64(r.ActualQtyPcs)*100, 0, 100)
	} else if r.JumlahCacat > 0 {
		quality = 0
	}

	base := float64(planned)
	if r.DurasiMenit != nil && *r.DurasiMenit > 0 {
		base = float64(*r.DurasiMenit)
	}
	throughput := 0.0
	if effective := base - float64(downtimeMinutes); effective > 0 {
		throughput = r.TotalYard / (effective / 60)
	}

	return PerformanceMetrics{
		LaporanID:            r.ID,
		OEEPersen:            round2(availability * performance * quality / 10000),
		AvailabilityPersen:   round2(availability),
		PerformancePersen:    round2(performance),
		QualityPersen:        round2(quality),
		ThroughputYardPerJam: round2(throughput),
		DowntimeMenit:        downtimeMinutes,
	}
}

package models

import (
	"errors"
	"math"
	"time"

	"gorm.io/datatypes"
)

const meterPerYard = 0.9144

var (
	ErrReportNotEditable  = errors.New("laporan tidak dapat diubah pada status ini")
	ErrReportNotDraft     = errors.New("hanya laporan draft yang dapat disubmit")
	ErrReportNotSubmitted = errors.New("hanya laporan submitted yang dapat divalidasi")
	ErrInvalidOutcome     = errors.New("hasil validasi tidak dikenal")
	ErrReportNotRemovable = errors.New("laporan yang sudah disubmit atau disetujui tidak dapat dihapus")
)

// ReportSequence adalah counter nomor laporan per tanggal. Nilainya hanya
// naik, jadi nomor laporan yang sudah dihapus tidak pernah dipakai ulang.
type ReportSequence struct {
	Tanggal   string    `gorm:"primaryKey;size:8" json:"tanggal"`
	LastSeq   int       `gorm:"not null;default:0" json:"last_seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ==========================================
// CUTTING REPORT
// ==========================================

type CuttingReport struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	NomorLaporan string    `gorm:"size:30;not null;uniqueIndex" json:"nomor_laporan"`
	Tanggal      time.Time `gorm:"type:date;not null;index" json:"tanggal"`

	ShiftID     uint            `gorm:"not null;index" json:"shift_id"`
	Shift       *Shift          `gorm:"foreignKey:ShiftID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"shift,omitempty"`
	MesinID     uint            `gorm:"not null;index" json:"mesin_id"`
	Mesin       *CuttingMachine `gorm:"foreignKey:MesinID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"mesin,omitempty"`
	JenisKainID uint            `gorm:"not null;index" json:"jenis_kain_id"`
	JenisKain   *FabricType     `gorm:"foreignKey:JenisKainID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"jenis_kain,omitempty"`
	OperatorID  uint            `gorm:"not null;index" json:"operator_id"`
	Operator    *User           `gorm:"foreignKey:OperatorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"operator,omitempty"`
	LineID      *uint           `gorm:"index" json:"line_id"`
	Line        *ProductionLine `gorm:"foreignKey:LineID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"line,omitempty"`
	CustomerID  *uint           `gorm:"index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"customer,omitempty"`
	PatternID   *uint           `gorm:"index" json:"pattern_id"`
	Pattern     *Pattern        `gorm:"foreignKey:PatternID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"pattern,omitempty"`

	JumlahLayer      int      `gorm:"not null;default:0" json:"jumlah_layer"`
	PanjangKainMeter float64  `gorm:"not null;default:0" json:"panjang_kain_meter"`
	LebarKainCm      float64  `json:"lebar_kain_cm"`
	TotalYard        float64  `gorm:"not null;default:0" json:"total_yard"`
	TargetYard       *float64 `json:"target_yard"`
	VarianceYard     *float64 `json:"variance_yard"`
	EfisiensiPersen  *float64 `json:"efisiensi_persen"`

	WaktuMulai   *time.Time `json:"waktu_mulai"`
	WaktuSelesai *time.Time `json:"waktu_selesai"`
	DurasiMenit  *int       `json:"durasi_menit"`

	KualitasHasil QualityGrade                `gorm:"size:10;not null" json:"kualitas_hasil"`
	JumlahCacat   int                         `json:"jumlah_cacat"`
	JenisCacat    datatypes.JSONSlice[string] `json:"jenis_cacat"`
	KondisiMesin  MachineCondition            `gorm:"size:20;not null" json:"kondisi_mesin"`

	SuhuRuangan      *float64 `json:"suhu_ruangan"`
	KelembabanPersen *float64 `json:"kelembaban_persen"`

	BiayaTenagaKerja float64 `json:"biaya_tenaga_kerja"`
	BiayaKain        float64 `json:"biaya_kain"`
	BiayaOverhead    float64 `json:"biaya_overhead"`
	TotalBiaya       float64 `json:"total_biaya"`

	TargetQtyPcs        int      `json:"target_qty_pcs"`
	ActualQtyPcs        int      `json:"actual_qty_pcs"`
	UtilisasiKainPersen *float64 `json:"utilisasi_kain_persen"`

	StatusLaporan ReportStatus `gorm:"size:20;not null;index" json:"status_laporan"`
	Catatan       string       `gorm:"type:text" json:"catatan"`
	// Version dinaikkan setiap kali laporan ditulis; dipakai untuk optimistic locking.
	Version int `gorm:"not null" json:"version"`

	Details     []CuttingDetail     `gorm:"foreignKey:LaporanID;constraint:OnDelete:CASCADE" json:"details,omitempty"`
	Wastes      []MaterialWaste     `gorm:"foreignKey:LaporanID;constraint:OnDelete:CASCADE" json:"wastes,omitempty"`
	Metrics     *PerformanceMetrics `gorm:"foreignKey:LaporanID;constraint:OnDelete:CASCADE" json:"metrics,omitempty"`
	Validations []ValidationRecord  `gorm:"foreignKey:LaporanID;constraint:OnDelete:CASCADE" json:"validations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CuttingDetail is one pattern/size/colour line of a report.
type CuttingDetail struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	LaporanID             uint          `gorm:"not null;index" json:"laporan_id"`
	NamaPattern           string        `gorm:"size:150;not null" json:"nama_pattern"`
	Ukuran                string        `gorm:"size:20" json:"ukuran"`
	Warna                 string        `gorm:"size:50" json:"warna"`
	JumlahPotongan        int           `json:"jumlah_potongan"`
	QtyPerUkuran          int           `json:"qty_per_ukuran"`
	PanjangPatternCm      float64       `json:"panjang_pattern_cm"`
	LebarPatternCm        float64       `json:"lebar_pattern_cm"`
	EfisiensiMarkerPersen float64       `json:"efisiensi_marker_persen"`
	WastePersen           float64       `json:"waste_persen"`
	MetodeCutting         CuttingMethod `gorm:"size:10;not null" json:"metode_cutting"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// TotalYard converts the cut fabric length to yards: every layer consumes the
// full marker length.
func TotalYard(panjangKainMeter float64, jumlahLayer int) float64 {
	if panjangKainMeter <= 0 || jumlahLayer <= 0 {
		return 0
	}
	return round2(panjangKainMeter * float64(jumlahLayer) / meterPerYard)
}

// FabricAreaM2 is the spread area over all layers.
func FabricAreaM2(panjangKainMeter float64, jumlahLayer int, lebarKainCm float64) float64 {
	if panjangKainMeter <= 0 || jumlahLayer <= 0 || lebarKainCm <= 0 {
		return 0
	}
	return round2(panjangKainMeter * float64(jumlahLayer) * lebarKainCm / 100)
}

// ComputeDerivedMetrics recomputes every stored derived column from the
// report's inputs and its in-memory Details. It only reads inputs, so calling
// it repeatedly yields the same values.
func (r *CuttingReport) ComputeDerivedMetrics() {
	r.TotalYard = TotalYard(r.PanjangKainMeter, r.JumlahLayer)

	r.VarianceYard, r.EfisiensiPersen = nil, nil
	if r.TargetYard != nil && *r.TargetYard > 0 {
		variance := round2(r.TotalYard - *r.TargetYard)
		eff := round2(r.TotalYard / *r.TargetYard * 100)
		r.VarianceYard, r.EfisiensiPersen = &variance, &eff
	}

	r.DurasiMenit = nil
	if r.WaktuMulai != nil && r.WaktuSelesai != nil && !r.WaktuSelesai.Before(*r.WaktuMulai) {
		d := int(math.Round(r.WaktuSelesai.Sub(*r.WaktuMulai).Minutes()))
		r.DurasiMenit = &d
	}

	r.TotalBiaya = round2(r.BiayaTenagaKerja + r.BiayaKain + r.BiayaOverhead)
	r.UtilisasiKainPersen = markerUtilisation(r.Details)
}

// markerUtilisation is the marker efficiency of the details weighted by the
// number of pieces cut; details without pieces count once.
func markerUtilisation(details []CuttingDetail) *float64 {
	if len(details) == 0 {
		return nil
	}
	var sum, weight float64
	for _, d := range details {
		w := float64(d.JumlahPotongan)
		if w <= 0 {
			w = 1
		}
		sum += d.EfisiensiMarkerPersen * w
		weight += w
	}
	u := round2(sum / weight)
	return &u
}

// Editable reports whether the operator may still change the report.
func (r *CuttingReport) Editable() bool {
	return r.StatusLaporan == ReportDraft || r.StatusLaporan == ReportRejected
}

// Removable reports whether the report may be deleted.
func (r *CuttingReport) Removable() bool {
	return r.Editable()
}

// Reopen moves an editable report back to draft ahead of an edit.
func (r *CuttingReport) Reopen() error {
	if !r.Editable() {
		return ErrReportNotEditable
	}
	r.StatusLaporan = ReportDraft
	return nil
}

// MissingForSubmit returns the mandatory fields that are still empty.
func (r *CuttingReport) MissingForSubmit() map[string]string {
	missing := map[string]string{}
	if r.JumlahLayer <= 0 {
		missing["jumlah_layer"] = "wajib lebih dari 0"
	}
	if r.PanjangKainMeter <= 0 {
		missing["panjang_kain_meter"] = "wajib lebih dari 0"
	}
	if r.ShiftID == 0 {
		missing["shift_id"] = "wajib diisi"
	}
	if r.MesinID == 0 {
		missing["mesin_id"] = "wajib diisi"
	}
	if r.JenisKainID == 0 {
		missing["jenis_kain_id"] = "wajib diisi"
	}
	if r.OperatorID == 0 {
		missing["operator_id"] = "wajib diisi"
	}
	return missing
}

// Submit moves a draft report to submitted.
func (r *CuttingReport) Submit() error {
	if r.StatusLaporan != ReportDraft {
		return ErrReportNotDraft
	}
	r.StatusLaporan = ReportSubmitted
	return nil
}

// ApplyOutcome moves a submitted report according to a validation outcome.
// needs_revision hands the report back to the operator as draft.
func (r *CuttingReport) ApplyOutcome(outcome ValidationOutcome) error {
	if r.StatusLaporan != ReportSubmitted {
		return ErrReportNotSubmitted
	}
	switch outcome {
	case OutcomeApproved:
		r.StatusLaporan = ReportApproved
	case OutcomeRejected:
		r.StatusLaporan = ReportRejected
	case OutcomeNeedsRevision:
		r.StatusLaporan = ReportDraft
	default:
		return ErrInvalidOutcome
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

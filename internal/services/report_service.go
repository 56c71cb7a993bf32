package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
)

// DetailRequest is one cutting breakdown line.
type DetailRequest struct {
	NamaPattern           string               `json:"nama_pattern" validate:"required,max=150"`
	Ukuran                string               `json:"ukuran" validate:"max=20"`
	Warna                 string               `json:"warna" validate:"max=50"`
	JumlahPotongan        int                  `json:"jumlah_potongan" validate:"gte=0"`
	QtyPerUkuran          int                  `json:"qty_per_ukuran" validate:"gte=0"`
	PanjangPatternCm      float64              `json:"panjang_pattern_cm" validate:"gte=0"`
	LebarPatternCm        float64              `json:"lebar_pattern_cm" validate:"gte=0"`
	EfisiensiMarkerPersen float64              `json:"efisiensi_marker_persen" validate:"gte=0,lte=100"`
	WastePersen           float64              `json:"waste_persen" validate:"gte=0,lte=100"`
	MetodeCutting         models.CuttingMethod `json:"metode_cutting" validate:"omitempty,oneof=manual machine laser"`
}

// ReportRequest carries the editable fields of a cutting report.
type ReportRequest struct {
	Tanggal     string `json:"tanggal" validate:"required"`
	ShiftID     uint   `json:"shift_id" validate:"required"`
	MesinID     uint   `json:"mesin_id" validate:"required"`
	JenisKainID uint   `json:"jenis_kain_id" validate:"required"`
	LineID      *uint  `json:"line_id"`
	CustomerID  *uint  `json:"customer_id"`
	PatternID   *uint  `json:"pattern_id"`

	JumlahLayer      int      `json:"jumlah_layer" validate:"gte=0"`
	PanjangKainMeter float64  `json:"panjang_kain_meter" validate:"gte=0"`
	LebarKainCm      float64  `json:"lebar_kain_cm" validate:"gte=0"`
	TargetYard       *float64 `json:"target_yard" validate:"omitempty,gte=0"`

	WaktuMulai   *time.Time `json:"waktu_mulai"`
	WaktuSelesai *time.Time `json:"waktu_selesai"`

	KualitasHasil models.QualityGrade     `json:"kualitas_hasil" validate:"omitempty,oneof=good fair poor"`
	JumlahCacat   int                     `json:"jumlah_cacat" validate:"gte=0"`
	JenisCacat    []string                `json:"jenis_cacat" validate:"dive,required"`
	KondisiMesin  models.MachineCondition `json:"kondisi_mesin" validate:"omitempty,oneof=good needs_maintenance broken"`

	SuhuRuangan      *float64 `json:"suhu_ruangan"`
	KelembabanPersen *float64 `json:"kelembaban_persen" validate:"omitempty,gte=0,lte=100"`

	BiayaTenagaKerja float64 `json:"biaya_tenaga_kerja" validate:"gte=0"`
	BiayaKain        float64 `json:"biaya_kain" validate:"gte=0"`
	BiayaOverhead    float64 `json:"biaya_overhead" validate:"gte=0"`

	TargetQtyPcs int    `json:"target_qty_pcs" validate:"gte=0"`
	ActualQtyPcs int    `json:"actual_qty_pcs" validate:"gte=0"`
	Catatan      string `json:"catatan"`

	Details []DetailRequest `json:"details" validate:"dive"`

	// Version, when sent, must match the stored version of the report.
	Version *int `json:"version"`
}

// CreateReportRequest adds the waste rows recorded together with a new report.
type CreateReportRequest struct {
	ReportRequest
	Wastes []WasteRequest `json:"wastes" validate:"dive"`
}

// ValidateRequest is a supervisor decision on a submitted report.
type ValidateRequest struct {
	Hasil            models.ValidationOutcome `json:"hasil" validate:"required,oneof=approved rejected needs_revision"`
	Catatan          string                   `json:"catatan"`
	PermintaanRevisi []models.RevisionRequest `json:"permintaan_revisi" validate:"dive"`
	Version          *int                     `json:"version"`
}

// ReportFilter narrows a report listing.
type ReportFilter struct {
	Status     string
	From       *time.Time
	To         *time.Time
	ShiftID    uint
	MesinID    uint
	OperatorID uint
	Paging
}

type ReportService struct {
	db     *gorm.DB
	log    *zap.Logger
	policy Policy
	now    func() time.Time
}

func NewReportService(db *gorm.DB, log *zap.Logger, policy Policy) *ReportService {
	return &ReportService{db: db, log: log, policy: policy, now: time.Now}
}

// refs holds the master data a report points at, loaded during a write.
type refs struct {
	shift  *models.Shift
	fabric *models.FabricType
}

// checkRefs verifies every reference of req exists. Nothing is written before
// it succeeds.
func (s *ReportService) checkRefs(tx *gorm.DB, req *ReportRequest, operatorID uint) (*refs, error) {
	var out refs
	var shift models.Shift
	if err := tx.First(&shift, req.ShiftID).Error; err != nil {
		return nil, notFoundOr(err, "shift", req.ShiftID)
	}
	out.shift = &shift

	if ok, err := exists(tx, &models.CuttingMachine{}, req.MesinID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperror.NotFound("mesin cutting", req.MesinID)
	}

	var fabric models.FabricType
	if err := tx.First(&fabric, req.JenisKainID).Error; err != nil {
		return nil, notFoundOr(err, "jenis kain", req.JenisKainID)
	}
	out.fabric = &fabric

	if ok, err := exists(tx, &models.User{}, operatorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperror.NotFound("operator", operatorID)
	}

	optional := []struct {
		id     *uint
		model  any
		entity string
	}{
		{req.LineID, &models.ProductionLine{}, "line produksi"},
		{req.CustomerID, &models.Customer{}, "customer"},
		{req.PatternID, &models.Pattern{}, "pattern"},
	}
	for _, o := range optional {
		if o.id == nil {
			continue
		}
		ok, err := exists(tx, o.model, *o.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.NotFound(o.entity, *o.id)
		}
	}
	return &out, nil
}

func checkTimes(req *ReportRequest) error {
	if req.WaktuMulai != nil && req.WaktuSelesai != nil && req.WaktuSelesai.Before(*req.WaktuMulai) {
		return apperror.Field("waktu_selesai", "tidak boleh sebelum waktu_mulai")
	}
	return nil
}

// applyRequest copies the editable fields onto r and rebuilds its details.
func applyRequest(r *models.CuttingReport, req *ReportRequest, tanggal time.Time) {
	r.Tanggal = tanggal
	r.ShiftID = req.ShiftID
	r.MesinID = req.MesinID
	r.JenisKainID = req.JenisKainID
	r.LineID = req.LineID
	r.CustomerID = req.CustomerID
	r.PatternID = req.PatternID
	r.JumlahLayer = req.JumlahLayer
	r.PanjangKainMeter = req.PanjangKainMeter
	r.LebarKainCm = req.LebarKainCm
	r.TargetYard = req.TargetYard
	r.WaktuMulai = req.WaktuMulai
	r.WaktuSelesai = req.WaktuSelesai
	r.KualitasHasil = req.KualitasHasil
	if r.KualitasHasil == "" {
		r.KualitasHasil = models.QualityGood
	}
	r.JumlahCacat = req.JumlahCacat
	r.JenisCacat = req.JenisCacat
	r.KondisiMesin = req.KondisiMesin
	if r.KondisiMesin == "" {
		r.KondisiMesin = models.ConditionGood
	}
	r.SuhuRuangan = req.SuhuRuangan
	r.KelembabanPersen = req.KelembabanPersen
	r.BiayaTenagaKerja = req.BiayaTenagaKerja
	r.BiayaKain = req.BiayaKain
	r.BiayaOverhead = req.BiayaOverhead
	r.TargetQtyPcs = req.TargetQtyPcs
	r.ActualQtyPcs = req.ActualQtyPcs
	r.Catatan = req.Catatan

	r.Details = make([]models.CuttingDetail, 0, len(req.Details))
	for _, d := range req.Details {
		method := d.MetodeCutting
		if method == "" {
			method = models.MethodMachine
		}
		r.Details = append(r.Details, models.CuttingDetail{
			LaporanID:             r.ID,
			NamaPattern:           d.NamaPattern,
			Ukuran:                d.Ukuran,
			Warna:                 d.Warna,
			JumlahPotongan:        d.JumlahPotongan,
			QtyPerUkuran:          d.QtyPerUkuran,
			PanjangPatternCm:      d.PanjangPatternCm,
			LebarPatternCm:        d.LebarPatternCm,
			EfisiensiMarkerPersen: d.EfisiensiMarkerPersen,
			WastePersen:           d.WastePersen,
			MetodeCutting:         method,
		})
	}
}

// Create records a new draft report with its details and wastes in one
// transaction.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest, operatorID uint) (*models.CuttingReport, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	if err := checkTimes(&req.ReportRequest); err != nil {
		return nil, err
	}
	tanggal, err := parseDate("tanggal", req.Tanggal)
	if err != nil {
		return nil, err
	}

	var report models.CuttingReport
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := s.checkRefs(tx, &req.ReportRequest, operatorID)
		if err != nil {
			return err
		}

		number, err := nextReportNumber(tx, tanggal)
		if err != nil {
			return err
		}

		report = models.CuttingReport{
			NomorLaporan:  number,
			OperatorID:    operatorID,
			StatusLaporan: models.ReportDraft,
			Version:       1,
		}
		applyRequest(&report, &req.ReportRequest, tanggal)
		report.ComputeDerivedMetrics()

		if err := tx.Omit(clause.Associations).Create(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("nomor laporan %s sudah dipakai, silakan coba lagi", number)
			}
			return err
		}

		if len(report.Details) > 0 {
			for i := range report.Details {
				report.Details[i].LaporanID = report.ID
			}
			if err := tx.Create(&report.Details).Error; err != nil {
				return err
			}
		}

		for _, w := range req.Wastes {
			waste := buildWaste(report.ID, w, ref.fabric)
			if err := tx.Create(&waste).Error; err != nil {
				return err
			}
		}

		return upsertMetrics(tx, &report, ref.shift)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cutting report created",
		zap.Uint("report_id", report.ID),
		zap.String("nomor_laporan", report.NomorLaporan),
		zap.Uint("operator_id", operatorID),
		zap.Float64("total_yard", report.TotalYard))
	return s.Get(ctx, report.ID)
}

// Update replaces the editable fields and details of a draft or rejected
// report. A rejected report returns to draft.
func (s *ReportService) Update(ctx context.Context, id uint, req ReportRequest) (*models.CuttingReport, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	if err := checkTimes(&req); err != nil {
		return nil, err
	}
	tanggal, err := parseDate("tanggal", req.Tanggal)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := loadReport(tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(report, req.Version); err != nil {
			return err
		}
		if err := report.Reopen(); err != nil {
			return apperror.Wrap(apperror.KindConflict, err,
				fmt.Sprintf("laporan %s berstatus %s dan tidak dapat diubah", report.NomorLaporan, report.StatusLaporan))
		}

		ref, err := s.checkRefs(tx, &req, report.OperatorID)
		if err != nil {
			return err
		}

		prev := report.Version
		applyRequest(report, &req, tanggal)
		report.ComputeDerivedMetrics()
		if err := saveVersioned(tx, report, prev); err != nil {
			return err
		}

		if err := tx.Where("laporan_id = ?", report.ID).Delete(&models.CuttingDetail{}).Error; err != nil {
			return err
		}
		if len(report.Details) > 0 {
			if err := tx.Create(&report.Details).Error; err != nil {
				return err
			}
		}
		return upsertMetrics(tx, report, ref.shift)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cutting report updated", zap.Uint("report_id", id))
	return s.Get(ctx, id)
}

// Submit freezes a draft report for validation.
func (s *ReportService) Submit(ctx context.Context, id uint, version *int) (*models.CuttingReport, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := loadReport(tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(report, version); err != nil {
			return err
		}
		if report.StatusLaporan != models.ReportDraft {
			return apperror.Wrap(apperror.KindConflict, models.ErrReportNotDraft,
				fmt.Sprintf("laporan %s berstatus %s, hanya draft yang dapat disubmit", report.NomorLaporan, report.StatusLaporan))
		}

		missing := report.MissingForSubmit()
		for col, entity := range map[string]struct {
			model any
			id    uint
		}{
			"shift_id":      {&models.Shift{}, report.ShiftID},
			"mesin_id":      {&models.CuttingMachine{}, report.MesinID},
			"jenis_kain_id": {&models.FabricType{}, report.JenisKainID},
			"operator_id":   {&models.User{}, report.OperatorID},
		} {
			if _, ok := missing[col]; ok {
				continue
			}
			ok, err := exists(tx, entity.model, entity.id)
			if err != nil {
				return err
			}
			if !ok {
				missing[col] = "referensi tidak ditemukan"
			}
		}
		if len(missing) > 0 {
			return apperror.Validation("laporan belum lengkap untuk disubmit", missing)
		}

		if err := tx.Where("laporan_id = ?", report.ID).Find(&report.Details).Error; err != nil {
			return err
		}

		prev := report.Version
		report.ComputeDerivedMetrics()
		if err := report.Submit(); err != nil {
			return apperror.Wrap(apperror.KindConflict, err, err.Error())
		}
		if err := saveVersioned(tx, report, prev); err != nil {
			return err
		}
		return refreshMetrics(tx, report)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cutting report submitted", zap.Uint("report_id", id))
	return s.Get(ctx, id)
}

// Validate records a supervisor decision on a submitted report and moves the
// report accordingly.
func (s *ReportService) Validate(ctx context.Context, id uint, req ValidateRequest, validatorID uint) (*models.ValidationRecord, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	if req.Hasil == models.OutcomeNeedsRevision && len(req.PermintaanRevisi) == 0 && strings.TrimSpace(req.Catatan) == "" {
		return nil, apperror.Field("permintaan_revisi", "wajib diisi untuk needs_revision")
	}

	var record models.ValidationRecord
	var newStatus models.ReportStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadUser(tx, validatorID); err != nil {
			return err
		}
		report, err := loadReport(tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(report, req.Version); err != nil {
			return err
		}
		if report.StatusLaporan != models.ReportSubmitted {
			return apperror.Wrap(apperror.KindConflict, models.ErrReportNotSubmitted,
				fmt.Sprintf("laporan %s berstatus %s, hanya submitted yang dapat divalidasi", report.NomorLaporan, report.StatusLaporan))
		}
		if !s.policy.AllowSelfValidation && report.OperatorID == validatorID {
			return apperror.Authz("validator tidak boleh memvalidasi laporannya sendiri")
		}

		prev := report.Version
		if err := report.ApplyOutcome(req.Hasil); err != nil {
			return apperror.Wrap(apperror.KindValidation, err, err.Error())
		}

		record = models.ValidationRecord{
			LaporanID:        report.ID,
			ValidatorID:      validatorID,
			Hasil:            req.Hasil,
			Catatan:          req.Catatan,
			PermintaanRevisi: req.PermintaanRevisi,
			WaktuValidasi:    s.now(),
			VersiLaporan:     prev,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		newStatus = report.StatusLaporan
		return updateStatus(tx, report.ID, prev, newStatus)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cutting report validated",
		zap.Uint("report_id", id),
		zap.Uint("validator_id", validatorID),
		zap.String("hasil", string(req.Hasil)),
		zap.String("status", string(newStatus)))
	return &record, nil
}

// Delete removes a draft or rejected report together with everything it
// owns. Downtime rows survive with their report reference cleared.
func (s *ReportService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := loadReport(tx, id)
		if err != nil {
			return err
		}
		if !report.Removable() {
			return apperror.Wrap(apperror.KindConflict, models.ErrReportNotRemovable,
				fmt.Sprintf("laporan %s berstatus %s dan tidak dapat dihapus", report.NomorLaporan, report.StatusLaporan))
		}

		for _, owned := range []any{
			&models.CuttingDetail{},
			&models.MaterialWaste{},
			&models.PerformanceMetrics{},
			&models.ValidationRecord{},
		} {
			if err := tx.Where("laporan_id = ?", id).Delete(owned).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.MachineDowntime{}).Where("laporan_id = ?", id).Update("laporan_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(report).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("cutting report deleted", zap.Uint("report_id", id))
	return nil
}

func (s *ReportService) Get(ctx context.Context, id uint) (*models.CuttingReport, error) {
	var report models.CuttingReport
	err := s.db.WithContext(ctx).
		Preload("Shift").
		Preload("Mesin").
		Preload("JenisKain").
		Preload("Operator").
		Preload("Line").
		Preload("Customer").
		Preload("Pattern").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Wastes", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Metrics").
		First(&report, id).Error
	if err != nil {
		return nil, notFoundOr(err, "laporan", id)
	}
	return &report, nil
}

func (s *ReportService) List(ctx context.Context, f ReportFilter) ([]models.CuttingReport, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CuttingReport{})
	if f.Status != "" {
		q = q.Where("status_laporan = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("tanggal >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("tanggal <= ?", *f.To)
	}
	if f.ShiftID != 0 {
		q = q.Where("shift_id = ?", f.ShiftID)
	}
	if f.MesinID != 0 {
		q = q.Where("mesin_id = ?", f.MesinID)
	}
	if f.OperatorID != 0 {
		q = q.Where("operator_id = ?", f.OperatorID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.CuttingReport
	err := f.Paging.apply(q).
		Preload("Shift").
		Preload("Mesin").
		Preload("JenisKain").
		Preload("Operator").
		Preload("Metrics").
		Order("tanggal desc, id desc").
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// History returns the validation trail of a report, newest first.
func (s *ReportService) History(ctx context.Context, id uint) ([]models.ValidationRecord, error) {
	db := s.db.WithContext(ctx)
	if ok, err := exists(db, &models.CuttingReport{}, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperror.NotFound("laporan", id)
	}

	var records []models.ValidationRecord
	err := db.Preload("Validator").
		Where("laporan_id = ?", id).
		Order("waktu_validasi desc, id desc").
		Find(&records).Error
	return records, err
}

// DashboardSummary aggregates reports over a date range.
type DashboardSummary struct {
	TotalLaporan       int64            `json:"total_laporan"`
	PerStatus          map[string]int64 `json:"per_status"`
	TotalYard          float64          `json:"total_yard"`
	RataRataOEE        float64          `json:"rata_rata_oee"`
	TotalWasteMeter    float64          `json:"total_waste_meter"`
	TotalKerugianWaste float64          `json:"total_kerugian_waste"`
	TotalDowntimeMenit int64            `json:"total_downtime_menit"`
}

func (s *ReportService) Dashboard(ctx context.Context, from, to *time.Time) (*DashboardSummary, error) {
	db := s.db.WithContext(ctx)
	scoped := func(q *gorm.DB, col string) *gorm.DB {
		if from != nil {
			q = q.Where(col+" >= ?", *from)
		}
		if to != nil {
			q = q.Where(col+" <= ?", *to)
		}
		return q
	}

	var perStatus []struct {
		StatusLaporan string
		Total         int64
	}
	err := scoped(db.Model(&models.CuttingReport{}), "tanggal").
		Select("status_laporan, count(*) as total").
		Group("status_laporan").
		Scan(&perStatus).Error
	if err != nil {
		return nil, err
	}

	out := &DashboardSummary{PerStatus: map[string]int64{}}
	for _, row := range perStatus {
		out.PerStatus[row.StatusLaporan] = row.Total
		out.TotalLaporan += row.Total
	}

	var totals struct {
		TotalYard float64
	}
	err = scoped(db.Model(&models.CuttingReport{}), "tanggal").
		Select("coalesce(sum(total_yard), 0) as total_yard").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	out.TotalYard = totals.TotalYard

	var oee struct {
		Avg float64
	}
	err = scoped(db.Table("performance_metrics pm").
		Joins("join cutting_reports cr on cr.id = pm.laporan_id"), "cr.tanggal").
		Select("coalesce(avg(pm.oee_persen), 0) as avg").
		Scan(&oee).Error
	if err != nil {
		return nil, err
	}
	out.RataRataOEE = roundTo2(oee.Avg)

	var waste struct {
		Meter    float64
		Kerugian float64
	}
	err = scoped(db.Table("material_wastes mw").
		Joins("join cutting_reports cr on cr.id = mw.laporan_id"), "cr.tanggal").
		Select("coalesce(sum(mw.jumlah_meter), 0) as meter, coalesce(sum(mw.estimasi_kerugian), 0) as kerugian").
		Scan(&waste).Error
	if err != nil {
		return nil, err
	}
	out.TotalWasteMeter = waste.Meter
	out.TotalKerugianWaste = waste.Kerugian

	var downtime struct {
		Menit int64
	}
	err = scoped(db.Model(&models.MachineDowntime{}), "waktu_mulai").
		Select("coalesce(sum(durasi_menit), 0) as menit").
		Scan(&downtime).Error
	if err != nil {
		return nil, err
	}
	out.TotalDowntimeMenit = downtime.Menit

	return out, nil
}

func loadReport(tx *gorm.DB, id uint) (*models.CuttingReport, error) {
	var report models.CuttingReport
	if err := tx.First(&report, id).Error; err != nil {
		return nil, notFoundOr(err, "laporan", id)
	}
	return &report, nil
}

func checkVersion(r *models.CuttingReport, expected *int) error {
	if expected != nil && *expected != r.Version {
		return apperror.Conflict("laporan %s sudah berubah (versi %d, dikirim %d), muat ulang data",
			r.NomorLaporan, r.Version, *expected)
	}
	return nil
}

// saveVersioned writes the report only if nobody bumped its version since it
// was loaded.
func saveVersioned(tx *gorm.DB, r *models.CuttingReport, prev int) error {
	r.Version = prev + 1
	res := tx.Model(r).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "nomor_laporan", "operator_id", "created_at", clause.Associations).
		Updates(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("laporan %s diubah bersamaan oleh pengguna lain", r.NomorLaporan)
	}
	return nil
}

func updateStatus(tx *gorm.DB, id uint, prev int, status models.ReportStatus) error {
	res := tx.Model(&models.CuttingReport{}).
		Where("id = ? AND version = ?", id, prev).
		Updates(map[string]any{
			"status_laporan": status,
			"version":        prev + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("laporan %d diubah bersamaan oleh pengguna lain", id)
	}
	return nil
}

// refreshMetrics loads the report's shift and recomputes its metrics.
func refreshMetrics(tx *gorm.DB, r *models.CuttingReport) error {
	var shift models.Shift
	if err := tx.First(&shift, r.ShiftID).Error; err != nil {
		return notFoundOr(err, "shift", r.ShiftID)
	}
	return upsertMetrics(tx, r, &shift)
}

// upsertMetrics recomputes PerformanceMetrics from the report, its shift and
// the closed downtime linked to it, and stores them on r.Metrics.
func upsertMetrics(tx *gorm.DB, r *models.CuttingReport, shift *models.Shift) error {
	var downtime struct {
		Menit int
	}
	err := tx.Model(&models.MachineDowntime{}).
		Where("laporan_id = ? AND waktu_selesai IS NOT NULL", r.ID).
		Select("coalesce(sum(durasi_menit), 0) as menit").
		Scan(&downtime).Error
	if err != nil {
		return err
	}

	computed := models.ComputePerformance(r, shift, downtime.Menit)

	var existing models.PerformanceMetrics
	err = tx.Where("laporan_id = ?", r.ID).First(&existing).Error
	switch {
	case err == nil:
		computed.ID = existing.ID
		computed.CreatedAt = existing.CreatedAt
		if err := tx.Save(&computed).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(&computed).Error; err != nil {
			return err
		}
	default:
		return err
	}
	r.Metrics = &computed
	return nil
}

// nextReportNumber issues CUT-YYYYMMDD-NNNN from the per-date counter. The
// counter row is locked for the rest of the transaction and never goes down.
func nextReportNumber(tx *gorm.DB, tanggal time.Time) (string, error) {
	key := tanggal.Format("20060102")
	prefix := "CUT-" + key + "-"

	var seq models.ReportSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq, "tanggal = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// counter baru: lanjutkan dari nomor tertinggi yang sudah ada
		start, err := highestReportSeq(tx, prefix)
		if err != nil {
			return "", err
		}
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReportSequence{Tanggal: key, LastSeq: start}).Error
		if err != nil {
			return "", err
		}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq, "tanggal = ?", key).Error
	}
	if err != nil {
		return "", err
	}

	seq.LastSeq++
	if err := tx.Model(&seq).Update("last_seq", seq.LastSeq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq.LastSeq), nil
}

// highestReportSeq returns the largest sequence among stored numbers with the
// given prefix, compared numerically.
func highestReportSeq(tx *gorm.DB, prefix string) (int, error) {
	var numbers []string
	err := tx.Model(&models.CuttingReport{}).
		Where("nomor_laporan LIKE ?", prefix+"%").
		Pluck("nomor_laporan", &numbers).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, n := range numbers {
		if v, err := strconv.Atoi(strings.TrimPrefix(n, prefix)); err == nil && v > highest {
			highest = v
		}
	}
	return highest, nil
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

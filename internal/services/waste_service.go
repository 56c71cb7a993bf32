package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
)

type WasteRequest struct {
	JenisWaste  models.WasteType `json:"jenis_waste" validate:"required,oneof=offcut end_of_roll fabric_defect miscut marker_loss other"`
	JumlahMeter float64          `json:"jumlah_meter" validate:"gt=0"`
	// EstimasiKerugian defaults to jumlah_meter x harga_per_meter of the report's fabric.
	EstimasiKerugian *float64 `json:"estimasi_kerugian" validate:"omitempty,gte=0"`
	Catatan          string   `json:"catatan"`
}

// WasteSummary is the waste of one report for a single waste type.
type WasteSummary struct {
	JenisWaste    models.WasteType `json:"jenis_waste"`
	Jumlah        int64            `json:"jumlah"`
	TotalMeter    float64          `json:"total_meter"`
	TotalKerugian float64          `json:"total_kerugian"`
}

type WasteService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewWasteService(db *gorm.DB, log *zap.Logger) *WasteService {
	return &WasteService{db: db, log: log}
}

func buildWaste(laporanID uint, req WasteRequest, fabric *models.FabricType) models.MaterialWaste {
	w := models.MaterialWaste{
		LaporanID:   laporanID,
		JenisWaste:  req.JenisWaste,
		JumlahMeter: req.JumlahMeter,
		Catatan:     req.Catatan,
	}
	switch {
	case req.EstimasiKerugian != nil:
		w.EstimasiKerugian = *req.EstimasiKerugian
	case fabric != nil:
		w.EstimasiKerugian = roundTo2(req.JumlahMeter * fabric.HargaPerMeter)
	}
	return w
}

// Add appends a waste row to a report the operator may still edit.
func (s *WasteService) Add(ctx context.Context, laporanID uint, req WasteRequest) (*models.MaterialWaste, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}

	var waste models.MaterialWaste
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := loadReport(tx, laporanID)
		if err != nil {
			return err
		}
		if !report.Editable() {
			return apperror.Wrap(apperror.KindConflict, models.ErrReportNotEditable,
				fmt.Sprintf("laporan %s berstatus %s, waste tidak dapat ditambahkan", report.NomorLaporan, report.StatusLaporan))
		}
		var fabric models.FabricType
		if err := tx.First(&fabric, report.JenisKainID).Error; err != nil {
			return notFoundOr(err, "jenis kain", report.JenisKainID)
		}
		waste = buildWaste(report.ID, req, &fabric)
		return tx.Create(&waste).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("material waste recorded",
		zap.Uint("report_id", laporanID),
		zap.String("jenis", string(waste.JenisWaste)),
		zap.Float64("meter", waste.JumlahMeter))
	return &waste, nil
}

func (s *WasteService) ListByReport(ctx context.Context, laporanID uint) ([]models.MaterialWaste, error) {
	db := s.db.WithContext(ctx)
	if ok, err := exists(db, &models.CuttingReport{}, laporanID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperror.NotFound("laporan", laporanID)
	}
	var items []models.MaterialWaste
	err := db.Where("laporan_id = ?", laporanID).Order("id").Find(&items).Error
	return items, err
}

// Summary groups the waste of a report by type.
func (s *WasteService) Summary(ctx context.Context, laporanID uint) ([]WasteSummary, error) {
	db := s.db.WithContext(ctx)
	if ok, err := exists(db, &models.CuttingReport{}, laporanID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperror.NotFound("laporan", laporanID)
	}
	var rows []WasteSummary
	err := db.Model(&models.MaterialWaste{}).
		Select("jenis_waste, count(*) as jumlah, coalesce(sum(jumlah_meter), 0) as total_meter, coalesce(sum(estimasi_kerugian), 0) as total_kerugian").
		Where("laporan_id = ?", laporanID).
		Group("jenis_waste").
		Order("jenis_waste").
		Scan(&rows).Error
	return rows, err
}

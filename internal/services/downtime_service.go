package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/models"
)

type StartDowntimeRequest struct {
	MesinID        uint                `json:"mesin_id" validate:"required"`
	LaporanID      *uint               `json:"laporan_id"`
	JenisDowntime  models.DowntimeType `json:"jenis_downtime" validate:"required,oneof=scheduled_maintenance unscheduled_maintenance breakdown setup blade_change break other"`
	WaktuMulai     *time.Time          `json:"waktu_mulai"`
	Deskripsi      string              `json:"deskripsi"`
	Teknisi        string              `json:"teknisi" validate:"max=100"`
	BiayaPerbaikan float64             `json:"biaya_perbaikan" validate:"gte=0"`
}

type CloseDowntimeRequest struct {
	WaktuSelesai   *time.Time `json:"waktu_selesai"`
	Teknisi        string     `json:"teknisi" validate:"max=100"`
	BiayaPerbaikan *float64   `json:"biaya_perbaikan" validate:"omitempty,gte=0"`
}

type DowntimeFilter struct {
	MesinID   uint
	LaporanID uint
	OpenOnly  bool
	Paging
}

type DowntimeService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewDowntimeService(db *gorm.DB, log *zap.Logger) *DowntimeService {
	return &DowntimeService{db: db, log: log, now: time.Now}
}

// Start opens a downtime window on a machine. A breakdown or maintenance
// window also moves the machine status.
func (s *DowntimeService) Start(ctx context.Context, req StartDowntimeRequest) (*models.MachineDowntime, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	start := s.now()
	if req.WaktuMulai != nil {
		start = *req.WaktuMulai
	}

	dt := models.StartDowntime(req.MesinID, req.JenisDowntime, start)
	dt.LaporanID = req.LaporanID
	dt.Deskripsi = req.Deskripsi
	dt.Teknisi = req.Teknisi
	dt.BiayaPerbaikan = req.BiayaPerbaikan

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machine models.CuttingMachine
		if err := tx.First(&machine, req.MesinID).Error; err != nil {
			return notFoundOr(err, "mesin cutting", req.MesinID)
		}
		if req.LaporanID != nil {
			ok, err := exists(tx, &models.CuttingReport{}, *req.LaporanID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NotFound("laporan", *req.LaporanID)
			}
		}

		var open int64
		err := tx.Model(&models.MachineDowntime{}).
			Where("mesin_id = ? AND waktu_selesai IS NULL", req.MesinID).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return apperror.Conflict("mesin %s masih memiliki downtime yang belum ditutup", machine.KodeMesin)
		}

		if err := tx.Omit(clause.Associations).Create(&dt).Error; err != nil {
			return err
		}

		// mesin yang sudah dinonaktifkan tetap inactive
		if status := req.JenisDowntime.MachineStatus(); status != "" {
			return tx.Model(&models.CuttingMachine{}).
				Where("id = ? AND status <> ?", machine.ID, models.StatusInactive).
				Update("status", status).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("downtime started",
		zap.Uint("downtime_id", dt.ID),
		zap.Uint("mesin_id", dt.MesinID),
		zap.String("jenis", string(dt.JenisDowntime)))
	return &dt, nil
}

// Close ends an open window. The machine goes back to active unless its
// status was changed elsewhere meanwhile, and the linked report's performance
// metrics pick up the downtime.
func (s *DowntimeService) Close(ctx context.Context, id uint, req CloseDowntimeRequest) (*models.MachineDowntime, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}
	end := s.now()
	if req.WaktuSelesai != nil {
		end = *req.WaktuSelesai
	}

	var dt models.MachineDowntime
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dt, id).Error; err != nil {
			return notFoundOr(err, "downtime", id)
		}

		if err := dt.Close(end); err != nil {
			switch {
			case errors.Is(err, models.ErrDowntimeClosed):
				return apperror.Wrap(apperror.KindConflict, err, err.Error())
			case errors.Is(err, models.ErrEndBeforeStart):
				return apperror.Field("waktu_selesai", err.Error())
			}
			return err
		}
		if req.Teknisi != "" {
			dt.Teknisi = req.Teknisi
		}
		if req.BiayaPerbaikan != nil {
			dt.BiayaPerbaikan = *req.BiayaPerbaikan
		}

		res := tx.Model(&dt).
			Where("waktu_selesai IS NULL").
			Updates(map[string]any{
				"waktu_selesai":   dt.WaktuSelesai,
				"durasi_menit":    dt.DurasiMenit,
				"teknisi":         dt.Teknisi,
				"biaya_perbaikan": dt.BiayaPerbaikan,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.Wrap(apperror.KindConflict, models.ErrDowntimeClosed, models.ErrDowntimeClosed.Error())
		}

		// hanya kembalikan ke active jika status mesin masih hasil downtime ini
		if status := dt.JenisDowntime.MachineStatus(); status != "" {
			err := tx.Model(&models.CuttingMachine{}).
				Where("id = ? AND status = ?", dt.MesinID, status).
				Update("status", models.StatusActive).Error
			if err != nil {
				return err
			}
		}

		if dt.LaporanID == nil {
			return nil
		}
		report, err := loadReport(tx, *dt.LaporanID)
		if err != nil {
			return err
		}
		return refreshMetrics(tx, report)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("downtime closed",
		zap.Uint("downtime_id", dt.ID),
		zap.Uint("mesin_id", dt.MesinID),
		zap.Intp("durasi_menit", dt.DurasiMenit))
	return &dt, nil
}

func (s *DowntimeService) List(ctx context.Context, f DowntimeFilter) ([]models.MachineDowntime, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.MachineDowntime{})
	if f.MesinID != 0 {
		q = q.Where("mesin_id = ?", f.MesinID)
	}
	if f.LaporanID != 0 {
		q = q.Where("laporan_id = ?", f.LaporanID)
	}
	if f.OpenOnly {
		q = q.Where("waktu_selesai IS NULL")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.MachineDowntime
	err := f.Paging.apply(q).Preload("Mesin").Order("waktu_mulai desc, id desc").Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

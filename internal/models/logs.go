package models

import (
	"errors"
	"math"
	"time"
)

var (
	ErrDowntimeClosed = errors.New("downtime sudah ditutup")
	ErrEndBeforeStart = errors.New("waktu selesai tidak boleh sebelum waktu mulai")
)

// ==========================================
// MACHINE DOWNTIME
// ==========================================

type MachineDowntime struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	MesinID        uint            `gorm:"not null;index" json:"mesin_id"`
	Mesin          *CuttingMachine `gorm:"foreignKey:MesinID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"mesin,omitempty"`
	LaporanID      *uint           `gorm:"index" json:"laporan_id"`
	Laporan        *CuttingReport  `gorm:"foreignKey:LaporanID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	WaktuMulai     time.Time       `gorm:"not null;index" json:"waktu_mulai"`
	WaktuSelesai   *time.Time      `json:"waktu_selesai"`
	DurasiMenit    *int            `json:"durasi_menit"`
	JenisDowntime  DowntimeType    `gorm:"size:30;not null;index" json:"jenis_downtime"`
	Deskripsi      string          `gorm:"type:text" json:"deskripsi"`
	Teknisi        string          `gorm:"size:100" json:"teknisi"`
	BiayaPerbaikan float64         `json:"biaya_perbaikan"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StartDowntime opens a downtime window at start.
func StartDowntime(mesinID uint, jenis DowntimeType, start time.Time) MachineDowntime {
	return MachineDowntime{MesinID: mesinID, JenisDowntime: jenis, WaktuMulai: start}
}

func (d *MachineDowntime) IsOpen() bool { return d.WaktuSelesai == nil }

// Close ends the window and records its duration in whole minutes.
func (d *MachineDowntime) Close(end time.Time) error {
	if !d.IsOpen() {
		return ErrDowntimeClosed
	}
	if end.Before(d.WaktuMulai) {
		return ErrEndBeforeStart
	}
	minutes := int(math.Round(end.Sub(d.WaktuMulai).Minutes()))
	d.WaktuSelesai = &end
	d.DurasiMenit = &minutes
	return nil
}

// ==========================================
// MATERIAL WASTE
// ==========================================

type MaterialWaste struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	LaporanID        uint      `gorm:"not null;index" json:"laporan_id"`
	JenisWaste       WasteType `gorm:"size:20;not null;index" json:"jenis_waste"`
	JumlahMeter      float64   `gorm:"not null" json:"jumlah_meter"`
	EstimasiKerugian float64   `json:"estimasi_kerugian"`
	Catatan          string    `gorm:"type:text" json:"catatan"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

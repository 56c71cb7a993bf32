package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// MasterRecord is implemented by every reference entity managed by the
// master data registry.
type MasterRecord interface {
	GetID() uint
	EntityName() string
	CodeColumn() string
	NameColumn() string
	Code() string
	// Deactivate sets the entity's decommissioned status.
	Deactivate()
	// DeleteRules lists the dependents consulted before a hard delete.
	DeleteRules() []DeleteRule
}

// ==========================================
// SHIFT
// ==========================================

// BreakWindow is one break inside a shift, "HH:MM" to "HH:MM".
type BreakWindow struct {
	Mulai   string `json:"mulai" validate:"required,datetime=15:04"`
	Selesai string `json:"selesai" validate:"required,datetime=15:04"`
}

// Minutes returns the break length; a window crossing midnight wraps.
func (b BreakWindow) Minutes() int {
	return clockDiff(b.Mulai, b.Selesai)
}

type Shift struct {
	ID             uint                             `gorm:"primaryKey" json:"id"`
	NamaShift      string                           `gorm:"size:50;not null;uniqueIndex" json:"nama_shift"`
	JamMulai       string                           `gorm:"size:5;not null" json:"jam_mulai"`
	JamSelesai     string                           `gorm:"size:5;not null" json:"jam_selesai"`
	DurasiMenit    int                              `gorm:"not null" json:"durasi_menit"`
	WaktuIstirahat datatypes.JSONSlice[BreakWindow] `json:"waktu_istirahat"`
	Status         RecordStatus                     `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
}

func (s *Shift) GetID() uint        { return s.ID }
func (s *Shift) EntityName() string { return "shift" }
func (s *Shift) CodeColumn() string { return "nama_shift" }
func (s *Shift) NameColumn() string { return "nama_shift" }
func (s *Shift) Code() string       { return s.NamaShift }
func (s *Shift) Deactivate()        { s.Status = StatusInactive }
func (s *Shift) DeleteRules() []DeleteRule {
	return []DeleteRule{{Table: "cutting_reports", Column: "shift_id", Policy: Restrict}}
}

// BreakMinutes is the total of all break windows.
func (s *Shift) BreakMinutes() int {
	total := 0
	for _, b := range s.WaktuIstirahat {
		total += b.Minutes()
	}
	return total
}

// PlannedMinutes is the productive time of the shift: duration minus breaks.
func (s *Shift) PlannedMinutes() int {
	d := s.DurasiMenit
	if d <= 0 {
		d = clockDiff(s.JamMulai, s.JamSelesai)
	}
	d -= s.BreakMinutes()
	if d < 0 {
		return 0
	}
	return d
}

// ==========================================
// CUTTING MACHINE
// ==========================================

type CuttingMachine struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	KodeMesin       string       `gorm:"size:30;not null;uniqueIndex" json:"kode_mesin"`
	NamaMesin       string       `gorm:"size:100;not null" json:"nama_mesin"`
	TipeMesin       string       `gorm:"size:50" json:"tipe_mesin"`
	KapasitasLayer  int          `json:"kapasitas_layer"`
	KapasitasHarian float64      `json:"kapasitas_harian"`
	Status          RecordStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	Lokasi          string       `gorm:"size:100" json:"lokasi"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (m *CuttingMachine) GetID() uint        { return m.ID }
func (m *CuttingMachine) EntityName() string { return "mesin cutting" }
func (m *CuttingMachine) CodeColumn() string { return "kode_mesin" }
func (m *CuttingMachine) NameColumn() string { return "nama_mesin" }
func (m *CuttingMachine) Code() string       { return m.KodeMesin }
func (m *CuttingMachine) Deactivate()        { m.Status = StatusInactive }
func (m *CuttingMachine) DeleteRules() []DeleteRule {
	return []DeleteRule{
		{Table: "cutting_reports", Column: "mesin_id", Policy: Restrict},
		{Table: "machine_downtimes", Column: "mesin_id", Policy: Restrict},
	}
}

// ==========================================
// FABRIC TYPE
// ==========================================

type FabricType struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	KodeKain       string                      `gorm:"size:30;not null;uniqueIndex" json:"kode_kain"`
	NamaKain       string                      `gorm:"size:100;not null" json:"nama_kain"`
	Kategori       string                      `gorm:"size:50" json:"kategori"`
	BeratGsm       float64                     `json:"berat_gsm"`
	LebarStandarCm float64                     `json:"lebar_standar_cm"`
	WarnaTersedia  datatypes.JSONSlice[string] `json:"warna_tersedia"`
	Supplier       string                      `gorm:"size:100" json:"supplier"`
	HargaPerMeter  float64                     `json:"harga_per_meter"`
	Status         RecordStatus                `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (f *FabricType) GetID() uint        { return f.ID }
func (f *FabricType) EntityName() string { return "jenis kain" }
func (f *FabricType) CodeColumn() string { return "kode_kain" }
func (f *FabricType) NameColumn() string { return "nama_kain" }
func (f *FabricType) Code() string       { return f.KodeKain }
func (f *FabricType) Deactivate()        { f.Status = StatusInactive }
func (f *FabricType) DeleteRules() []DeleteRule {
	return []DeleteRule{{Table: "cutting_reports", Column: "jenis_kain_id", Policy: Restrict}}
}

// ==========================================
// PRODUCTION LINE
// ==========================================

type ProductionLine struct {
	ID                  uint                      `gorm:"primaryKey" json:"id"`
	KodeLine            string                    `gorm:"size:30;not null;uniqueIndex" json:"kode_line"`
	NamaLine            string                    `gorm:"size:100;not null" json:"nama_line"`
	KapasitasHarianYard float64                   `json:"kapasitas_harian_yard"`
	MesinIDs            datatypes.JSONSlice[uint] `gorm:"column:mesin_ids" json:"mesin_ids"`
	Status              RecordStatus              `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

func (l *ProductionLine) GetID() uint        { return l.ID }
func (l *ProductionLine) EntityName() string { return "line produksi" }
func (l *ProductionLine) CodeColumn() string { return "kode_line" }
func (l *ProductionLine) NameColumn() string { return "nama_line" }
func (l *ProductionLine) Code() string       { return l.KodeLine }
func (l *ProductionLine) Deactivate()        { l.Status = StatusInactive }
func (l *ProductionLine) DeleteRules() []DeleteRule {
	return []DeleteRule{{Table: "cutting_reports", Column: "line_id", Policy: SetNull}}
}

// ==========================================
// CUSTOMER
// ==========================================

type Customer struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	KodeCustomer      string         `gorm:"size:30;not null;uniqueIndex" json:"kode_customer"`
	NamaCustomer      string         `gorm:"size:150;not null" json:"nama_customer"`
	Negara            string         `gorm:"size:60" json:"negara"`
	SpesifikasiKhusus datatypes.JSON `json:"spesifikasi_khusus"`
	Status            RecordStatus   `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (c *Customer) GetID() uint        { return c.ID }
func (c *Customer) EntityName() string { return "customer" }
func (c *Customer) CodeColumn() string { return "kode_customer" }
func (c *Customer) NameColumn() string { return "nama_customer" }
func (c *Customer) Code() string       { return c.KodeCustomer }
func (c *Customer) Deactivate()        { c.Status = StatusInactive }
func (c *Customer) DeleteRules() []DeleteRule {
	return []DeleteRule{{Table: "cutting_reports", Column: "customer_id", Policy: SetNull}}
}

// ==========================================
// PATTERN
// ==========================================

type Pattern struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	KodePattern        string         `gorm:"size:30;not null;uniqueIndex" json:"kode_pattern"`
	NamaPattern        string         `gorm:"size:150;not null" json:"nama_pattern"`
	KategoriProduk     string         `gorm:"size:60" json:"kategori_produk"`
	RangeUkuran        string         `gorm:"size:60" json:"range_ukuran"`
	PanjangCm          float64        `json:"panjang_cm"`
	LebarCm            float64        `json:"lebar_cm"`
	KonsumsiKainPerPcs float64        `json:"konsumsi_kain_per_pcs"` // meter per potong
	BreakdownUkuran    datatypes.JSON `json:"breakdown_ukuran"`
	TingkatKesulitan   string         `gorm:"size:20" json:"tingkat_kesulitan"`
	Status             RecordStatus   `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (p *Pattern) GetID() uint        { return p.ID }
func (p *Pattern) EntityName() string { return "pattern" }
func (p *Pattern) CodeColumn() string { return "kode_pattern" }
func (p *Pattern) NameColumn() string { return "nama_pattern" }
func (p *Pattern) Code() string       { return p.KodePattern }
func (p *Pattern) Deactivate()        { p.Status = StatusInactive }
func (p *Pattern) DeleteRules() []DeleteRule {
	return []DeleteRule{{Table: "cutting_reports", Column: "pattern_id", Policy: SetNull}}
}

// clockDiff returns minutes from a to b ("HH:MM"), wrapping past midnight.
// Unparseable input yields 0.
func clockDiff(a, b string) int {
	am, ok1 := clockMinutes(a)
	bm, ok2 := clockMinutes(b)
	if !ok1 || !ok2 {
		return 0
	}
	d := bm - am
	if d < 0 {
		d += 24 * 60
	}
	return d
}

func clockMinutes(s string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

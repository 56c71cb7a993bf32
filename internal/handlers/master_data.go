package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

// ==========================================
// REQUEST BODIES
// ==========================================

type ShiftRequest struct {
	NamaShift      string               `json:"nama_shift" validate:"required,max=50"`
	JamMulai       string               `json:"jam_mulai" validate:"required,datetime=15:04"`
	JamSelesai     string               `json:"jam_selesai" validate:"required,datetime=15:04"`
	DurasiMenit    int                  `json:"durasi_menit" validate:"gte=0"`
	WaktuIstirahat []models.BreakWindow `json:"waktu_istirahat" validate:"dive"`
	Status         models.RecordStatus  `json:"status" validate:"omitempty,oneof=active inactive"`
}

type MachineRequest struct {
	KodeMesin       string              `json:"kode_mesin" validate:"required,max=30"`
	NamaMesin       string              `json:"nama_mesin" validate:"required,max=100"`
	TipeMesin       string              `json:"tipe_mesin" validate:"max=50"`
	KapasitasLayer  int                 `json:"kapasitas_layer" validate:"gte=0"`
	KapasitasHarian float64             `json:"kapasitas_harian" validate:"gte=0"`
	Status          models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive maintenance broken"`
	Lokasi          string              `json:"lokasi" validate:"max=100"`
}

type FabricRequest struct {
	KodeKain       string              `json:"kode_kain" validate:"required,max=30"`
	NamaKain       string              `json:"nama_kain" validate:"required,max=100"`
	Kategori       string              `json:"kategori" validate:"max=50"`
	BeratGsm       float64             `json:"berat_gsm" validate:"gte=0"`
	LebarStandarCm float64             `json:"lebar_standar_cm" validate:"gte=0"`
	WarnaTersedia  []string            `json:"warna_tersedia" validate:"dive,required"`
	Supplier       string              `json:"supplier" validate:"max=100"`
	HargaPerMeter  float64             `json:"harga_per_meter" validate:"gte=0"`
	Status         models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type LineRequest struct {
	KodeLine            string              `json:"kode_line" validate:"required,max=30"`
	NamaLine            string              `json:"nama_line" validate:"required,max=100"`
	KapasitasHarianYard float64             `json:"kapasitas_harian_yard" validate:"gte=0"`
	MesinIDs            []uint              `json:"mesin_ids"`
	Status              models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
}

type CustomerRequest struct {
	KodeCustomer      string              `json:"kode_customer" validate:"required,max=30"`
	NamaCustomer      string              `json:"nama_customer" validate:"required,max=150"`
	Negara            string              `json:"negara" validate:"max=60"`
	SpesifikasiKhusus datatypes.JSON      `json:"spesifikasi_khusus"`
	Status            models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type PatternRequest struct {
	KodePattern        string              `json:"kode_pattern" validate:"required,max=30"`
	NamaPattern        string              `json:"nama_pattern" validate:"required,max=150"`
	KategoriProduk     string              `json:"kategori_produk" validate:"max=60"`
	RangeUkuran        string              `json:"range_ukuran" validate:"max=60"`
	PanjangCm          float64             `json:"panjang_cm" validate:"gte=0"`
	LebarCm            float64             `json:"lebar_cm" validate:"gte=0"`
	KonsumsiKainPerPcs float64             `json:"konsumsi_kain_per_pcs" validate:"gte=0"`
	BreakdownUkuran    datatypes.JSON      `json:"breakdown_ukuran"`
	TingkatKesulitan   string              `json:"tingkat_kesulitan" validate:"omitempty,oneof=easy medium hard"`
	Status             models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

func statusOr(s models.RecordStatus) models.RecordStatus {
	if s == "" {
		return models.StatusActive
	}
	return s
}

func bindShift(req *ShiftRequest, s *models.Shift) {
	s.NamaShift = req.NamaShift
	s.JamMulai = req.JamMulai
	s.JamSelesai = req.JamSelesai
	s.DurasiMenit = req.DurasiMenit
	s.WaktuIstirahat = req.WaktuIstirahat
	s.Status = statusOr(req.Status)
}

func bindMachine(req *MachineRequest, m *models.CuttingMachine) {
	m.KodeMesin = req.KodeMesin
	m.NamaMesin = req.NamaMesin
	m.TipeMesin = req.TipeMesin
	m.KapasitasLayer = req.KapasitasLayer
	m.KapasitasHarian = req.KapasitasHarian
	m.Status = statusOr(req.Status)
	m.Lokasi = req.Lokasi
}

func bindFabric(req *FabricRequest, f *models.FabricType) {
	f.KodeKain = req.KodeKain
	f.NamaKain = req.NamaKain
	f.Kategori = req.Kategori
	f.BeratGsm = req.BeratGsm
	f.LebarStandarCm = req.LebarStandarCm
	f.WarnaTersedia = req.WarnaTersedia
	f.Supplier = req.Supplier
	f.HargaPerMeter = req.HargaPerMeter
	f.Status = statusOr(req.Status)
}

func bindLine(req *LineRequest, l *models.ProductionLine) {
	l.KodeLine = req.KodeLine
	l.NamaLine = req.NamaLine
	l.KapasitasHarianYard = req.KapasitasHarianYard
	l.MesinIDs = req.MesinIDs
	l.Status = statusOr(req.Status)
}

func bindCustomer(req *CustomerRequest, c *models.Customer) {
	c.KodeCustomer = req.KodeCustomer
	c.NamaCustomer = req.NamaCustomer
	c.Negara = req.Negara
	c.SpesifikasiKhusus = req.SpesifikasiKhusus
	c.Status = statusOr(req.Status)
}

func bindPattern(req *PatternRequest, p *models.Pattern) {
	p.KodePattern = req.KodePattern
	p.NamaPattern = req.NamaPattern
	p.KategoriProduk = req.KategoriProduk
	p.RangeUkuran = req.RangeUkuran
	p.PanjangCm = req.PanjangCm
	p.LebarCm = req.LebarCm
	p.KonsumsiKainPerPcs = req.KonsumsiKainPerPcs
	p.BreakdownUkuran = req.BreakdownUkuran
	p.TingkatKesulitan = req.TingkatKesulitan
	p.Status = statusOr(req.Status)
}

// ==========================================
// GENERIC HANDLERS
// ==========================================

// MasterRoutes mounts list/get/create/update/deactivate/delete for one
// registry. Writes are limited to the given middleware (admin role).
func MasterRoutes[T any, P services.Record[T], R any](r fiber.Router, reg *services.Registry[T, P], bind func(*R, *T), write fiber.Handler) {
	r.Get("/", ListMaster(reg))
	r.Get("/:id", GetMaster(reg))
	r.Post("/", write, CreateMaster(reg, bind))
	r.Put("/:id", write, UpdateMaster(reg, bind))
	r.Patch("/:id/deactivate", write, DeactivateMaster(reg))
	r.Delete("/:id", write, DeleteMaster(reg))
}

func ListMaster[T any, P services.Record[T]](reg *services.Registry[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := paging(c)
		items, total, err := reg.List(c.UserContext(), services.MasterFilter{
			Status: c.Query("status"),
			Search: c.Query("q"),
			Paging: p,
		})
		if err != nil {
			return respondError(c, err)
		}
		return listResponse(c, items, total, p)
	}
}

func GetMaster[T any, P services.Record[T]](reg *services.Registry[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		rec, err := reg.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	}
}

func CreateMaster[T any, P services.Record[T], R any](reg *services.Registry[T, P], bind func(*R, *T)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := services.Validate(&req); err != nil {
			return respondError(c, err)
		}

		var rec T
		bind(&req, &rec)
		if err := reg.Create(c.UserContext(), &rec); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(&rec)
	}
}

func UpdateMaster[T any, P services.Record[T], R any](reg *services.Registry[T, P], bind func(*R, *T)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var req R
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := services.Validate(&req); err != nil {
			return respondError(c, err)
		}

		rec, err := reg.Update(c.UserContext(), id, func(t *T) error {
			bind(&req, t)
			return nil
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	}
}

func DeactivateMaster[T any, P services.Record[T]](reg *services.Registry[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		rec, err := reg.Deactivate(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	}
}

func DeleteMaster[T any, P services.Record[T]](reg *services.Registry[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		if err := reg.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Data deleted successfully"})
	}
}

// RegisterMasterData mounts every registry of md under r.
func RegisterMasterData(r fiber.Router, md *services.MasterDataService, write fiber.Handler) {
	MasterRoutes(r.Group("/shifts"), md.Shifts, bindShift, write)
	MasterRoutes(r.Group("/machines"), md.Machines, bindMachine, write)
	MasterRoutes(r.Group("/fabrics"), md.Fabrics, bindFabric, write)
	MasterRoutes(r.Group("/lines"), md.Lines, bindLine, write)
	MasterRoutes(r.Group("/customers"), md.Customers, bindCustomer, write)
	MasterRoutes(r.Group("/patterns"), md.Patterns, bindPattern, write)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"cutting-report-backend/internal/models"
)

type ExportService struct {
	reports *ReportService
}

func NewExportService(reports *ReportService) *ExportService {
	return &ExportService{reports: reports}
}

var exportHeaders = []string{
	"Nomor Laporan", "Tanggal", "Shift", "Mesin", "Jenis Kain", "Operator",
	"Jumlah Layer", "Panjang Kain (m)", "Total Yard", "Target Yard", "Efisiensi (%)",
	"Kualitas", "Jumlah Cacat", "Total Biaya", "OEE (%)", "Status", "Luas Kain (m2)",
}

var exportWidths = []float64{20, 12, 12, 14, 18, 18, 12, 16, 12, 12, 13, 10, 12, 14, 10, 12, 14}

// Export writes every report matching f into a single-sheet workbook.
func (s *ExportService) Export(ctx context.Context, f ReportFilter) (*excelize.File, string, error) {
	var rows []reportRow
	f.Paging = Paging{Page: 1, PerPage: maxPerPage}
	for {
		reports, total, err := s.reports.List(ctx, f)
		if err != nil {
			return nil, "", err
		}
		for i := range reports {
			rows = append(rows, toReportRow(&reports[i]))
		}
		if int64(f.Page*f.PerPage) >= total || len(reports) == 0 {
			break
		}
		f.Page++
	}

	file := excelize.NewFile()
	sheet := "Laporan Cutting"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		file.Close()
		return nil, "", err
	}
	if err := writeReportSheet(file, sheet, rows); err != nil {
		file.Close()
		return nil, "", fmt.Errorf("tulis sheet export: %w", err)
	}

	filename := fmt.Sprintf("laporan_cutting_%s.xlsx", time.Now().Format("20060102_150405"))
	return file, filename, nil
}

// writeReportSheet fills sheet with the header, one row per report and a
// bold summary row.
func writeReportSheet(file *excelize.File, sheet string, rows []reportRow) error {
	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := file.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	var totalYard, totalBiaya float64
	for i, r := range rows {
		for j, v := range r.values() {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		totalYard += r.totalYard
		totalBiaya += r.totalBiaya
	}

	summaryRow := len(rows) + 3
	summaryStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	summary := map[string]any{
		"A": "Total",
		"B": fmt.Sprintf("%d laporan", len(rows)),
		"I": roundTo2(totalYard),
		"N": roundTo2(totalBiaya),
	}
	for col, v := range summary {
		if err := file.SetCellValue(sheet, fmt.Sprintf("%s%d", col, summaryRow), v); err != nil {
			return err
		}
	}
	if err := file.SetRowStyle(sheet, summaryRow, summaryRow, summaryStyle); err != nil {
		return err
	}

	for i, w := range exportWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

type reportRow struct {
	nomor, tanggal, shift, mesin, kain, operator string
	layer                                        int
	panjang, totalYard                           float64
	targetYard, efisiensi                        any
	kualitas                                     string
	cacat                                        int
	totalBiaya                                   float64
	oee                                          any
	status                                       string
	luas                                         float64
}

func toReportRow(r *models.CuttingReport) reportRow {
	row := reportRow{
		nomor:      r.NomorLaporan,
		tanggal:    r.Tanggal.Format("2006-01-02"),
		layer:      r.JumlahLayer,
		panjang:    r.PanjangKainMeter,
		totalYard:  r.TotalYard,
		kualitas:   string(r.KualitasHasil),
		cacat:      r.JumlahCacat,
		totalBiaya: r.TotalBiaya,
		status:     string(r.StatusLaporan),
		luas:       models.FabricAreaM2(r.PanjangKainMeter, r.JumlahLayer, r.LebarKainCm),
		targetYard: "",
		efisiensi:  "",
		oee:        "",
	}
	if r.Shift != nil {
		row.shift = r.Shift.NamaShift
	}
	if r.Mesin != nil {
		row.mesin = r.Mesin.KodeMesin
	}
	if r.JenisKain != nil {
		row.kain = r.JenisKain.NamaKain
	}
	if r.Operator != nil {
		row.operator = r.Operator.Nama
	}
	if r.TargetYard != nil {
		row.targetYard = *r.TargetYard
	}
	if r.EfisiensiPersen != nil {
		row.efisiensi = *r.EfisiensiPersen
	}
	if r.Metrics != nil {
		row.oee = r.Metrics.OEEPersen
	}
	return row
}

func (r reportRow) values() []any {
	return []any{
		r.nomor, r.tanggal, r.shift, r.mesin, r.kain, r.operator,
		r.layer, r.panjang, r.totalYard, r.targetYard, r.efisiensi,
		r.kualitas, r.cacat, r.totalBiaya, r.oee, r.status, r.luas,
	}
}

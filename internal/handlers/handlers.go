package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cutting-report-backend/internal/services"
)

// GetDashboard summarises reports between start_date and end_date.
func GetDashboard(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryDate(c, "start_date", false)
		if err != nil {
			return badRequest(c, err.Error())
		}
		to, err := queryDate(c, "end_date", true)
		if err != nil {
			return badRequest(c, err.Error())
		}
		summary, err := svc.Dashboard(c.UserContext(), from, to)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(summary)
	}
}

// ExportReports streams the filtered reports as an xlsx workbook.
func ExportReports(svc *services.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := reportFilter(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		file, filename, err := svc.Export(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		defer file.Close()

		buf, err := file.WriteToBuffer()
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Send(buf.Bytes())
	}
}

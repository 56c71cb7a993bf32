package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

// ==========================================
// DOWNTIME
// ==========================================

func GetDowntimes(svc *services.DowntimeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := paging(c)
		items, total, err := svc.List(c.UserContext(), services.DowntimeFilter{
			MesinID:   uint(c.QueryInt("mesin_id")),
			LaporanID: uint(c.QueryInt("laporan_id")),
			OpenOnly:  c.QueryBool("open"),
			Paging:    p,
		})
		if err != nil {
			return respondError(c, err)
		}
		return listResponse(c, items, total, p)
	}
}

func StartDowntime(svc *services.DowntimeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req services.StartDowntimeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		dt, err := svc.Start(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(dt)
	}
}

func CloseDowntime(svc *services.DowntimeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var req services.CloseDowntimeRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}
		dt, err := svc.Close(c.UserContext(), id, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dt)
	}
}

// ==========================================
// MATERIAL WASTE
// ==========================================

func GetReportWastes(svc *services.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		items, err := svc.ListByReport(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if items == nil {
			items = []models.MaterialWaste{}
		}
		return c.JSON(items)
	}
}

func AddReportWaste(svc *services.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var req services.WasteRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		waste, err := svc.Add(c.UserContext(), id, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(waste)
	}
}

func GetReportWasteSummary(svc *services.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		rows, err := svc.Summary(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if rows == nil {
			rows = []services.WasteSummary{}
		}
		return c.JSON(rows)
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

// versionRequest carries the optional version a client asserts on a state
// change.
type versionRequest struct {
	Version *int `json:"version"`
}

func reportFilter(c *fiber.Ctx) (services.ReportFilter, error) {
	from, err := queryDate(c, "start_date", false)
	if err != nil {
		return services.ReportFilter{}, err
	}
	to, err := queryDate(c, "end_date", true)
	if err != nil {
		return services.ReportFilter{}, err
	}
	return services.ReportFilter{
		Status:     c.Query("status"),
		From:       from,
		To:         to,
		ShiftID:    uint(c.QueryInt("shift_id")),
		MesinID:    uint(c.QueryInt("mesin_id")),
		OperatorID: uint(c.QueryInt("operator_id")),
		Paging:     paging(c),
	}, nil
}

// GetReports lists cutting reports.
func GetReports(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := reportFilter(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		reports, total, err := svc.List(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		return listResponse(c, reports, total, f.Paging)
	}
}

func GetReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		report, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	}
}

// CreateReport records a new draft report for the logged in operator.
func CreateReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return unauthorized(c)
		}
		var req services.CreateReportRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		report, err := svc.Create(c.UserContext(), req, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

func UpdateReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var req services.ReportRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		report, err := svc.Update(c.UserContext(), id, req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	}
}

func DeleteReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Report deleted successfully"})
	}
}

func SubmitReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		var req versionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}
		report, err := svc.Submit(c.UserContext(), id, req.Version)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	}
}

// ValidateReport records the supervisor's decision on a submitted report.
func ValidateReport(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		validatorID, err := currentUserID(c)
		if err != nil {
			return unauthorized(c)
		}
		var req services.ValidateRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		record, err := svc.Validate(c.UserContext(), id, req, validatorID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(record)
	}
}

func GetReportValidations(svc *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		records, err := svc.History(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if records == nil {
			records = []models.ValidationRecord{}
		}
		return c.JSON(records)
	}
}

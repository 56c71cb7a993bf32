package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"cutting-report-backend/internal/apperror"
	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/services"
)

// respondError maps a service error to its HTTP status. Anything that is not
// a domain error is logged and reported as 500.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		zap.L().Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Kind {
	case apperror.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case apperror.KindConflict:
		status = fiber.StatusConflict
	case apperror.KindNotFound:
		status = fiber.StatusNotFound
	case apperror.KindAuthz:
		status = fiber.StatusForbidden
	}

	body := fiber.Map{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// paramID reads the :id route parameter.
func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errors.New("Invalid ID")
	}
	return uint(id), nil
}

func paging(c *fiber.Ctx) services.Paging {
	return services.Paging{Page: c.QueryInt("page", 1), PerPage: c.QueryInt("per_page", 20)}
}

func listResponse(c *fiber.Ctx, data any, total int64, p services.Paging) error {
	return c.JSON(fiber.Map{
		"data":     data,
		"total":    total,
		"page":     p.Page,
		"per_page": p.PerPage,
	})
}

// queryDate parses an optional YYYY-MM-DD query parameter. endOfDay moves the
// value to the last instant of that day.
func queryDate(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.New("Invalid " + key + " format. Use YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func currentUserID(c *fiber.Ctx) (uint, error) {
	userID, _, err := middleware.GetUserFromContext(c)
	return userID, err
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

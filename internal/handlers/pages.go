package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cutting-report-backend/internal/config"
)

// Index renders the web shell.
func Index(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title": "Laporan Cutting",
		"Theme": config.UITheme,
	}, "layouts/main")
}

// AccountInactive is where ActiveUserGuard sends deactivated users.
func AccountInactive(c *fiber.Ctx) error {
	msg := c.Query("error")
	if msg == "" {
		msg = "Akun Anda tidak aktif."
	}
	return c.Status(fiber.StatusOK).Render("account_inactive", fiber.Map{
		"Title":   "Akun Nonaktif",
		"Theme":   config.UITheme,
		"Message": msg,
	}, "layouts/main")
}

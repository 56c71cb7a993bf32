package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/config"
	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

type AuthHandler struct {
	DB      *gorm.DB
	JWT     config.JWTConfig
	Revoker middleware.TokenRevoker
	Log     *zap.Logger
}

func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, revoker middleware.TokenRevoker, log *zap.Logger) *AuthHandler {
	return &AuthHandler{DB: db, JWT: jwtCfg, Revoker: revoker, Log: log}
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	// Find user by username
	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.Log.Info("login failed: unknown user", zap.String("username", req.Username))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		h.Log.Error("login lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	if err := middleware.CheckPassword(req.Password, user.Password); err != nil {
		h.Log.Info("login failed: wrong password", zap.String("username", req.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	// akun nonaktif tidak boleh mendapat token baru
	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is inactive",
		})
	}

	token, err := middleware.GenerateJWT(h.JWT.Secret, h.JWT.Expire, user.ID, user.Role)
	if err != nil {
		h.Log.Error("generate jwt failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error generating authentication token",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.JWT.Expire),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(models.LoginResponse{
		Token: token,
		Role:  user.Role,
	})
}

// Logout revokes the current token and clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	jti, expiresAt := middleware.TokenFromContext(c)
	if h.Revoker != nil {
		if err := h.Revoker.Revoke(c.UserContext(), jti, expiresAt); err != nil {
			h.Log.Error("token revoke failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}
	middleware.ClearTokenCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		h.Log.Error("profile lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"user":  toUserResponse(user),
		"theme": config.UITheme,
	})
}

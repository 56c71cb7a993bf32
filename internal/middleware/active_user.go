package middleware

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/models"
)

// InactivePath is where deactivated users are sent after being logged out.
const InactivePath = "/account-inactive"

const inactiveMessage = "Akun Anda telah dinonaktifkan. Hubungi administrator."

// ActiveUserGuard runs after JWTProtected. A user that was deactivated (or
// removed) after the token was issued is logged out: the token is revoked,
// the cookie cleared and the request redirected to InactivePath.
func ActiveUserGuard(db *gorm.DB, revoker TokenRevoker, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := GetUserFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		var user models.User
		err = db.WithContext(c.UserContext()).Select("id", "is_active").First(&user, userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("active user check failed", zap.Uint("user_id", userID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
		if err == nil && user.IsActive {
			return c.Next()
		}

		jti, expiresAt := TokenFromContext(c)
		if revoker != nil {
			if err := revoker.Revoke(c.UserContext(), jti, expiresAt); err != nil {
				log.Error("token revoke failed", zap.String("jti", jti), zap.Error(err))
			}
		}
		ClearTokenCookie(c)

		log.Info("inactive user logged out", zap.Uint("user_id", userID))
		return c.Redirect(InactivePath+"?error="+url.QueryEscape(inactiveMessage), fiber.StatusFound)
	}
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
)

// UserResponse defines the structure for user data sent to the client
type UserResponse struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Nama     string      `json:"nama"`
	Role     models.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Nama: u.Nama, Role: u.Role, IsActive: u.IsActive}
}

// CreateUserRequest defines the structure for registering a user
type CreateUserRequest struct {
	Username string      `json:"username" validate:"required,max=100"`
	Nama     string      `json:"nama" validate:"max=150"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"required,oneof=admin operator supervisor"`
}

// UpdateUserRequest defines the structure for updating a user
type UpdateUserRequest struct {
	Username string      `json:"username" validate:"required,max=100"`
	Nama     string      `json:"nama" validate:"max=150"`
	Password string      `json:"password,omitempty" validate:"omitempty,min=6"` // Password is optional
	Role     models.Role `json:"role" validate:"required,oneof=admin operator supervisor"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GetUsers handles fetching all users
func GetUsers(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := db.Order("username").Find(&users).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
		}

		// Transform users to UserResponse to avoid sending password hash
		response := make([]UserResponse, 0, len(users))
		for _, user := range users {
			response = append(response, toUserResponse(user))
		}

		return c.JSON(response)
	}
}

// CreateUser handles user registration (for admin only)
func CreateUser(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := services.Validate(&req); err != nil {
			return respondError(c, err)
		}

		taken, err := usernameTaken(db, req.Username, 0)
		if err != nil {
			log.Error("check username failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error checking username"})
		}
		if taken {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
		}

		hashedPassword, err := middleware.HashPassword(req.Password)
		if err != nil {
			log.Error("hash password failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error processing request"})
		}

		user := models.User{
			Username: req.Username,
			Nama:     req.Nama,
			Password: hashedPassword,
			Role:     req.Role,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
			}
			log.Error("create user failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error creating user"})
		}

		log.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// UpdateUser handles updating a user's details
func UpdateUser(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
		}

		var req UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := services.Validate(&req); err != nil {
			return respondError(c, err)
		}

		// Find the user to update
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}

		taken, err := usernameTaken(db, req.Username, user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error checking username"})
		}
		if taken {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
		}

		user.Username = req.Username
		user.Nama = req.Nama
		user.Role = req.Role

		// If a new password is provided, hash and update it
		if req.Password != "" {
			hashedPassword, err := middleware.HashPassword(req.Password)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error processing password"})
			}
			user.Password = hashedPassword
		}

		if err := db.Save(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already exists"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
		}

		return c.JSON(toUserResponse(user))
	}
}

// SetUserActive activates or deactivates a user. A deactivated user is logged
// out by ActiveUserGuard on the next request.
func SetUserActive(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
		}
		var req SetActiveRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := services.Validate(&req); err != nil {
			return respondError(c, err)
		}

		selfID, err := currentUserID(c)
		if err != nil {
			return unauthorized(c)
		}
		if selfID == id && !*req.IsActive {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You cannot deactivate your own account"})
		}

		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
			}
			return respondError(c, err)
		}

		if err := db.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
			return respondError(c, err)
		}
		user.IsActive = *req.IsActive

		log.Info("user active flag changed", zap.Uint("user_id", user.ID), zap.Bool("is_active", user.IsActive))
		return c.JSON(toUserResponse(user))
	}
}

// usernameTaken cek apakah username sudah dipakai user lain.
func usernameTaken(db *gorm.DB, username string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where("username = ?", username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

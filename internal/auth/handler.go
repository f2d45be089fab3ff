package auth

import (
	"errors"
	"strings"
	"time"

	"asset-tracker-backend/internal/config"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

const MinPasswordLength = 6

// POST /api/auth/register-super-admin
func RegisterSuperAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Username == "" {
			body.Username = body.Email
		}

		if body.Name == "" || body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name, username and password are required")
		}
		if len(body.Password) < MinPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "Password is too short")
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleSuperAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "A super admin already exists")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Username:     body.Username,
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleSuperAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		identifier := body.Identifier
		if identifier == "" {
			identifier = body.Email
		}
		if identifier == "" {
			identifier = body.Username
		}
		identifier = strings.TrimSpace(strings.ToLower(identifier))
		if identifier == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Email or username and password are required")
		}

		var user models.User
		if err := database.DB.Preload("AssignedStore").
			Where("LOWER(email) = ? OR LOWER(username) = ?", identifier, identifier).
			First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		if !CheckPassword(user.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		token, claims, err := GenerateToken(cfg.JWTSecret, cfg.TokenTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create token")
		}

		c.Cookie(&fiber.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			Expires:  claims.ExpiresAt.Time,
			HTTPOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: fiber.CookieSameSiteStrictMode,
		})

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userResponse(&user),
			"store": user.AssignedStore,
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(revoker Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, ok := c.Locals(CtxClaimsKey).(*JWTCustomClaims); ok && revoker != nil && claims.ExpiresAt != nil {
			if err := revoker.Revoke(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
				return err
			}
		}

		c.Cookie(&fiber.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
		})
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}

		response := userResponse(user)
		if user.AssignedStoreID != nil {
			var store models.Store
			err := database.DB.First(&store, *user.AssignedStoreID).Error
			switch {
			case err == nil:
				response["store"] = store
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fiber.NewError(fiber.StatusInternalServerError, "Could not load store")
			}
		}
		return c.JSON(response)
	}
}

// PUT /api/auth/password
func ChangePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if !CheckPassword(user.PasswordHash, body.CurrentPassword) {
			return fiber.NewError(fiber.StatusBadRequest, "Current password is incorrect")
		}
		if len(body.NewPassword) < MinPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "Password is too short")
		}

		hash, err := HashPassword(body.NewPassword)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}
		if err := database.DB.Model(&models.User{}).Where("id = ?", user.ID).
			Update("password_hash", hash).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update password")
		}
		return c.JSON(fiber.Map{"message": "Password updated"})
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":                user.ID,
		"name":              user.Name,
		"username":          user.Username,
		"email":             user.Email,
		"phone":             user.Phone,
		"role":              user.Role,
		"assigned_store_id": user.AssignedStoreID,
	}
}

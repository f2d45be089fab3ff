package auth

import (
	"strings"

	"asset-tracker-backend/internal/config"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserKey     = "user"
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxStoreIDKey  = "store_id"
	CtxClaimsKey   = "claims"

	CookieName = "token"
)

// JWTMiddleware accepts a bearer token or the session cookie and loads the
// current user.
func JWTMiddleware(cfg *config.Config, revoker Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := tokenFromRequest(c)
		if err != nil {
			return err
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		if revoker != nil && claims.ID != "" {
			revoked, err := revoker.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				return err
			}
			if revoked {
				return fiber.NewError(fiber.StatusUnauthorized, "Session has ended, please log in again")
			}
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "User no longer exists")
		}

		c.Locals(CtxUserKey, &user)
		c.Locals(CtxUserIDKey, user.ID)
		c.Locals(CtxUserRoleKey, user.Role)
		c.Locals(CtxStoreIDKey, user.AssignedStoreID)
		c.Locals(CtxClaimsKey, claims)

		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Role information missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
	}
}

// Admin lets Admins and Super Admins through.
func Admin() fiber.Handler {
	return RequireRole(models.RoleSuperAdmin, models.RoleAdmin)
}

func SuperAdmin() fiber.Handler {
	return RequireRole(models.RoleSuperAdmin)
}

// CurrentUser returns the user loaded by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(CtxUserKey).(*models.User)
	if !ok || user == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User information missing")
	}
	return user, nil
}

func IsAdmin(user *models.User) bool {
	return user.Role == models.RoleAdmin || user.Role == models.RoleSuperAdmin
}

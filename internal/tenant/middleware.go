package tenant

import (
	"log"

	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxScopeKey = "tenant_scope"

// Middleware resolves the request scope once, after authentication.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		scope, err := Resolve(database.DB, user.Role, user.AssignedStoreID, c.Get(HeaderActiveStore))
		if err != nil {
			log.Printf("tenant scope for user %d: %v", user.ID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Could not resolve store scope")
		}

		c.Locals(CtxScopeKey, scope)
		return c.Next()
	}
}

// FromCtx returns the scope set by Middleware. Without one nothing is
// visible.
func FromCtx(c *fiber.Ctx) Scope {
	if s, ok := c.Locals(CtxScopeKey).(Scope); ok {
		return s
	}
	return DenyAll()
}

// WriteStore picks the store a new record belongs to: the requested store,
// else the active-store header, else the user's own store. Super Admins may
// create records without a store.
func WriteStore(c *fiber.Ctx, requested *uint) (*uint, error) {
	scope := FromCtx(c)

	if requested != nil && *requested != 0 {
		if !scope.AllowsID(*requested) {
			return nil, fiber.NewError(fiber.StatusForbidden, "Store is outside your scope")
		}
		id := *requested
		return &id, nil
	}

	if id, err := ParseStoreID(c.Get(HeaderActiveStore)); err == nil && scope.AllowsID(id) {
		return &id, nil
	}

	user, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	if user.AssignedStoreID != nil && scope.AllowsID(*user.AssignedStoreID) {
		id := *user.AssignedStoreID
		return &id, nil
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, nil
	}
	return nil, fiber.NewError(fiber.StatusForbidden, "No store assigned to your account")
}

// Check returns 403 when storeID is outside the request scope.
func Check(c *fiber.Ctx, storeID *uint) error {
	if !FromCtx(c).Allows(storeID) {
		return fiber.NewError(fiber.StatusForbidden, "Record belongs to another store")
	}
	return nil
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestTokenRoundTrip(t *testing.T) {
	store := uint(7)
	user := &models.User{ID: 3, Username: "alice", Role: models.RoleAdmin, AssignedStoreID: &store}
	tok, claims, err := GenerateToken("0123456789abcdef0123456789abcdef", time.Hour, user)
	if err != nil {
		t.Fatal(err)
	}
	if claims.ID == "" {
		t.Error("token needs an id for revocation")
	}

	got, err := ParseToken("0123456789abcdef0123456789abcdef", tok)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != 3 || got.Role != models.RoleAdmin || got.StoreID == nil || *got.StoreID != 7 {
		t.Errorf("unexpected claims %+v", got)
	}
	if _, err := ParseToken("another-secret-another-secret-xx", tok); err == nil {
		t.Error("token signed with another secret was accepted")
	}

	expired, _, _ := GenerateToken("0123456789abcdef0123456789abcdef", -time.Minute, user)
	if _, err := ParseToken("0123456789abcdef0123456789abcdef", expired); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "s3cret-pass") || CheckPassword(hash, "s3cret-pasS") {
		t.Error("password check mismatch")
	}
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	r.Revoke(ctx, "live", time.Now().Add(time.Hour))
	r.Revoke(ctx, "stale", time.Now().Add(-time.Second))

	if ok, _ := r.IsRevoked(ctx, "live"); !ok {
		t.Error("live token should be revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "stale"); ok {
		t.Error("already expired token need not be remembered")
	}
	if ok, _ := r.IsRevoked(ctx, "other"); ok {
		t.Error("unknown token reported revoked")
	}
}

func TestLoginLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/login", NewLoginLimiter(2, time.Hour).Middleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		if err != nil {
			t.Fatal(err)
		}
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != fiber.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	setRole := func(role models.UserRole) fiber.Handler {
		return func(c *fiber.Ctx) error {
			c.Locals(CtxUserRoleKey, role)
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/tech-admin", setRole(models.RoleTechnician), Admin(), ok)
	app.Get("/admin-admin", setRole(models.RoleAdmin), Admin(), ok)
	app.Get("/admin-super", setRole(models.RoleAdmin), SuperAdmin(), ok)
	app.Get("/super-super", setRole(models.RoleSuperAdmin), SuperAdmin(), ok)

	for path, want := range map[string]int{
		"/tech-admin": fiber.StatusForbidden, "/admin-admin": 200,
		"/admin-super": fiber.StatusForbidden, "/super-super": 200,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("%s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

package admin

import (
	"errors"
	"testing"

	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected a fiber error, got %v", err)
	}
	return fe.Code
}

func TestUsernameAvailable(t *testing.T) {
	db := database.NewTestDB(t)
	if err := db.Create(&models.User{Name: "Ann", Username: "ann", Email: "ann@example.com", Role: models.RoleTechnician}).Error; err != nil {
		t.Fatal(err)
	}

	if err := usernameAvailable("bob", "bob@example.com", 0); err != nil {
		t.Errorf("free username: %v", err)
	}
	if code := statusOf(t, usernameAvailable("ann", "", 0)); code != fiber.StatusBadRequest {
		t.Errorf("taken username = %d", code)
	}
	if code := statusOf(t, usernameAvailable("other", "ann@example.com", 0)); code != fiber.StatusBadRequest {
		t.Errorf("taken email = %d", code)
	}

	if err := db.Migrator().DropTable(&models.User{}); err != nil {
		t.Fatal(err)
	}
	if code := statusOf(t, usernameAvailable("bob", "", 0)); code != fiber.StatusInternalServerError {
		t.Errorf("query failure = %d, want 500", code)
	}
}

func TestStoreNameAvailable(t *testing.T) {
	db := database.NewTestDB(t)
	store := models.Store{Name: "North"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatal(err)
	}

	if code := statusOf(t, nameAvailable("NORTH", 0)); code != fiber.StatusBadRequest {
		t.Errorf("duplicate name = %d", code)
	}
	if err := nameAvailable("north", store.ID); err != nil {
		t.Errorf("renaming to own name: %v", err)
	}

	if err := db.Migrator().DropTable(&models.Store{}); err != nil {
		t.Fatal(err)
	}
	if code := statusOf(t, nameAvailable("South", 0)); code != fiber.StatusInternalServerError {
		t.Errorf("query failure = %d, want 500", code)
	}
}

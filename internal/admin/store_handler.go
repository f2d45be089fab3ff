package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StoreRequest struct {
	Name          *string `json:"name"`
	Address       *string `json:"address"`
	Phone         *string `json:"phone"`
	ParentStoreID *uint   `json:"parent_store_id"`
	// MakeMain detaches a child store from its parent.
	MakeMain bool `json:"make_main"`
}

type DeletionRequest struct {
	Reason string `json:"reason"`
}

var errStoreInUse = errors.New("store still has child stores or assets")

// GET /api/stores
func ListStoresHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var stores []models.Store
		q := tenant.FromCtx(c).Apply(database.DB.Model(&models.Store{}), "id")
		if c.QueryBool("deletion_requested") {
			q = q.Where("deletion_requested = ?", true)
		}
		if err := q.Order("name asc").Find(&stores).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list stores")
		}
		return c.JSON(stores)
	}
}

// GET /api/stores/:id
func GetStoreHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		return c.JSON(store)
	}
}

// GET /api/stores/:id/children
func ListChildStoresHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		var children []models.Store
		if err := database.DB.Where("parent_store_id = ?", store.ID).Order("name asc").Find(&children).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list child stores")
		}
		return c.JSON(children)
	}
}

// POST /api/stores (Super Admin)
func CreateStoreHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StoreRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Store name is required")
		}

		store := models.Store{Name: strings.TrimSpace(*body.Name)}
		if body.Address != nil {
			store.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			store.Phone = strings.TrimSpace(*body.Phone)
		}
		if err := nameAvailable(store.Name, 0); err != nil {
			return err
		}
		if body.ParentStoreID != nil {
			if err := validParent(*body.ParentStoreID, 0); err != nil {
				return err
			}
			store.ParentStoreID = body.ParentStoreID
		}
		store.IsMainStore = store.ParentStoreID == nil

		if err := database.DB.Create(&store).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create store")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: &store.ID, EntityType: "store", EntityID: store.ID,
			Action: audit.ActionCreate, Description: fmt.Sprintf("Store %q created", store.Name),
		})
		return c.Status(fiber.StatusCreated).JSON(store)
	}
}

// PUT /api/stores/:id (Super Admin)
func UpdateStoreHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		var body StoreRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Store name cannot be empty")
			}
			if err := nameAvailable(name, store.ID); err != nil {
				return err
			}
			store.Name = name
		}
		if body.Address != nil {
			store.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			store.Phone = strings.TrimSpace(*body.Phone)
		}

		switch {
		case body.MakeMain:
			store.ParentStoreID = nil
		case body.ParentStoreID != nil:
			if err := validParent(*body.ParentStoreID, store.ID); err != nil {
				return err
			}
			var children int64
			if err := database.DB.Model(&models.Store{}).Where("parent_store_id = ?", store.ID).Count(&children).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not load child stores")
			}
			if children > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "A store with child stores cannot become a child store")
			}
			store.ParentStoreID = body.ParentStoreID
		}
		store.IsMainStore = store.ParentStoreID == nil

		if err := database.DB.Save(store).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update store")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: &store.ID, EntityType: "store", EntityID: store.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Store %q updated", store.Name),
		})
		return c.JSON(store)
	}
}

// DELETE /api/stores/:id (Super Admin)
func DeleteStoreHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		if err := deleteStore(database.DB, store); err != nil {
			if errors.Is(err, errStoreInUse) {
				return fiber.NewError(fiber.StatusBadRequest, "Store still has child stores or assets")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete store")
		}

		audit.Record(c, audit.LogOptions{
			EntityType: "store", EntityID: store.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("Store %q deleted", store.Name),
		})
		return c.JSON(fiber.Map{"message": "Store deleted"})
	}
}

// POST /api/stores/:id/request-deletion (Admin)
func RequestStoreDeletionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body DeletionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(body.Reason) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "A reason is required")
		}
		if store.DeletionRequested {
			return fiber.NewError(fiber.StatusBadRequest, "Deletion has already been requested")
		}

		now := time.Now()
		store.DeletionRequested = true
		store.DeletionRequestedByID = &user.ID
		store.DeletionRequestedAt = &now
		store.DeletionReason = strings.TrimSpace(body.Reason)
		if err := database.DB.Save(store).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not request deletion")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: &store.ID, EntityType: "store", EntityID: store.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Deletion of store %q requested: %s", store.Name, store.DeletionReason),
		})
		return c.JSON(store)
	}
}

// POST /api/stores/:id/approve-deletion (Super Admin)
func ApproveStoreDeletionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		if !store.DeletionRequested {
			return fiber.NewError(fiber.StatusBadRequest, "No deletion request for this store")
		}
		if err := deleteStore(database.DB, store); err != nil {
			if errors.Is(err, errStoreInUse) {
				return fiber.NewError(fiber.StatusBadRequest, "Store still has child stores or assets")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete store")
		}

		audit.Record(c, audit.LogOptions{
			EntityType: "store", EntityID: store.ID,
			Action: audit.ActionApprove, Description: fmt.Sprintf("Deletion of store %q approved", store.Name),
		})
		return c.JSON(fiber.Map{"message": "Store deleted"})
	}
}

// POST /api/stores/:id/reject-deletion (Super Admin)
func RejectStoreDeletionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := scopedStore(c)
		if err != nil {
			return err
		}
		if !store.DeletionRequested {
			return fiber.NewError(fiber.StatusBadRequest, "No deletion request for this store")
		}
		store.DeletionRequested = false
		store.DeletionRequestedByID = nil
		store.DeletionRequestedAt = nil
		store.DeletionReason = ""
		if err := database.DB.Save(store).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reject deletion")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: &store.ID, EntityType: "store", EntityID: store.ID,
			Action: audit.ActionReject, Description: fmt.Sprintf("Deletion of store %q rejected", store.Name),
		})
		return c.JSON(store)
	}
}

func scopedStore(c *fiber.Ctx) (*models.Store, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid store id")
	}
	if !tenant.FromCtx(c).AllowsID(uint(id)) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Store not found")
	}
	var store models.Store
	if err := database.DB.First(&store, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Store not found")
	}
	return &store, nil
}

func nameAvailable(name string, except uint) error {
	var count int64
	q := database.DB.Model(&models.Store{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if except != 0 {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not check store name")
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "A store with this name already exists")
	}
	return nil
}

// validParent allows only main stores as parents, so the hierarchy stays
// one level deep.
func validParent(parentID, self uint) error {
	if parentID == self {
		return fiber.NewError(fiber.StatusBadRequest, "A store cannot be its own parent")
	}
	var parent models.Store
	if err := database.DB.First(&parent, parentID).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Parent store not found")
	}
	if parent.ParentStoreID != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Child stores cannot have children")
	}
	return nil
}

// deleteStore removes an empty store with its catalog and unpins its users.
func deleteStore(db *gorm.DB, store *models.Store) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var children, assets int64
		if err := tx.Model(&models.Store{}).Where("parent_store_id = ?", store.ID).Count(&children).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Asset{}).Where("store_id = ?", store.ID).Count(&assets).Error; err != nil {
			return err
		}
		if children > 0 || assets > 0 {
			return errStoreInUse
		}

		if err := tx.Model(&models.User{}).Where("assigned_store_id = ?", store.ID).
			Update("assigned_store_id", nil).Error; err != nil {
			return err
		}
		for _, m := range []any{&models.Product{}, &models.AssetCategory{}} {
			if err := tx.Where("store_id = ?", store.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Store{}, store.ID).Error
	})
}

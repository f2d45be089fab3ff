package inventory

import (
	"fmt"
	"strings"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AssetRequest struct {
	Name         *string `json:"name"`
	ModelNumber  *string `json:"model_number"`
	SerialNumber *string `json:"serial_number"`
	MacAddress   *string `json:"mac_address"`
	Manufacturer *string `json:"manufacturer"`
	Category     *string `json:"category"`
	ProductName  *string `json:"product_name"`
	StoreID      *uint   `json:"store_id"`
	Location     *string `json:"location"`
	Status       *string `json:"status"`
	Condition    *string `json:"condition"`
	Source       *string `json:"source"`
	VendorName   *string `json:"vendor_name"`
	TicketNumber *string `json:"ticket_number"`

	AllowDuplicates bool `json:"allow_duplicates"`
}

// apply copies the set fields onto a and returns the names that changed.
func (r *AssetRequest) apply(a *models.Asset) []string {
	var changed []string
	for _, f := range []struct {
		name string
		dst  *string
		src  *string
	}{
		{"name", &a.Name, r.Name},
		{"model_number", &a.ModelNumber, r.ModelNumber},
		{"serial_number", &a.SerialNumber, r.SerialNumber},
		{"mac_address", &a.MacAddress, r.MacAddress},
		{"manufacturer", &a.Manufacturer, r.Manufacturer},
		{"category", &a.Category, r.Category},
		{"product_name", &a.ProductName, r.ProductName},
		{"location", &a.Location, r.Location},
		{"status", &a.Status, r.Status},
		{"condition", &a.Condition, r.Condition},
		{"source", &a.Source, r.Source},
		{"vendor_name", &a.VendorName, r.VendorName},
		{"ticket_number", &a.TicketNumber, r.TicketNumber},
	} {
		if optionalString(f.dst, f.src) {
			changed = append(changed, f.name)
		}
	}
	return changed
}

// GET /api/assets?page&limit&q&status&location&store&...
func ListAssetsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := scopedAssets(c)
		if err != nil {
			return err
		}
		q = applyFilters(c, q)

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count assets")
		}

		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var assets []models.Asset
		if err := page.Scope(q).
			Preload("Store").Preload("AssignedTo").
			Order("assets.created_at DESC, assets.id DESC").
			Find(&assets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list assets")
		}

		return c.JSON(fiber.Map{
			"items": toResponses(assets),
			"total": total,
			"page":  page.Page,
			"pages": page.Pages(total),
		})
	}
}

// GET /api/assets/my
func MyAssetsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var assets []models.Asset
		if err := database.DB.Preload("Store").
			Where("assigned_to_id = ?", user.ID).
			Order("assigned_at DESC, id DESC").
			Find(&assets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list your assets")
		}
		return c.JSON(toResponses(assets))
	}
}

// GET /api/assets/:id
func GetAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAsset(c, paramID(c))
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*a))
	}
}

// GET /api/assets/:id/history
func AssetHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAsset(c, paramID(c))
		if err != nil {
			return err
		}
		var history []models.AssetHistory
		if err := database.DB.Where("asset_id = ?", a.ID).
			Order("date DESC, id DESC").
			Find(&history).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load history")
		}
		return c.JSON(history)
	}
}

// POST /api/assets
func CreateAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AssetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		a := models.Asset{Status: "New"}
		body.apply(&a)
		if a.Name == "" {
			a.Name = a.ProductName
		}
		if a.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Asset name is required")
		}

		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}
		a.StoreID = storeID

		if !body.AllowDuplicates {
			taken, err := serialTaken(database.DB, a.StoreID, a.SerialNumber, 0)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not check serial number")
			}
			if taken {
				return fiber.NewError(fiber.StatusBadRequest, "An asset with this serial number already exists in this store")
			}
		}

		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		a.CreatedByID = &user.ID

		if err := commit(c, change{
			Asset:     &a,
			Action:    models.ActionCreated,
			LogAction: audit.ActionCreate,
			Ticket:    a.TicketNumber,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create asset")
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(a))
	}
}

// PUT /api/assets/:id
func UpdateAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAsset(c, paramID(c))
		if err != nil {
			return err
		}

		var body AssetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		changed := body.apply(a)
		if strings.TrimSpace(a.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Asset name cannot be empty")
		}
		if body.StoreID != nil && (a.StoreID == nil || *a.StoreID != *body.StoreID) {
			if err := tenant.Check(c, body.StoreID); err != nil {
				return err
			}
			id := *body.StoreID
			a.StoreID = &id
			a.Store = nil
			changed = append(changed, "store_id")
		}
		if len(changed) == 0 {
			return c.JSON(toResponse(*a))
		}

		if !body.AllowDuplicates {
			taken, err := serialTaken(database.DB, a.StoreID, a.SerialNumber, a.ID)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not check serial number")
			}
			if taken {
				return fiber.NewError(fiber.StatusBadRequest, "An asset with this serial number already exists in this store")
			}
		}

		if err := commit(c, change{
			Asset:     a,
			Action:    models.ActionUpdated,
			LogAction: audit.ActionUpdate,
			Ticket:    a.TicketNumber,
			Details:   "Changed: " + strings.Join(changed, ", "),
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update asset")
		}
		return c.JSON(toResponse(*a))
	}
}

// DELETE /api/assets/:id
func DeleteAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAsset(c, paramID(c))
		if err != nil {
			return err
		}
		if err := deleteAssets(database.DB, []uint{a.ID}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete asset")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     a.StoreID,
			EntityType:  entityAsset,
			EntityID:    a.ID,
			Action:      audit.ActionDelete,
			Description: fmt.Sprintf("Asset %q (%s) deleted", a.Name, a.SerialNumber),
		})
		return c.JSON(fiber.Map{"message": "Asset deleted"})
	}
}

func deleteAssets(db *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id IN ?", ids).Delete(&models.AssetHistory{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Asset{}).Error
	})
}

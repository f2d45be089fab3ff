package procurement

import (
	"fmt"
	"strings"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type VendorRequest struct {
	StoreID       *uint   `json:"store_id"`
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	Notes         *string `json:"notes"`
}

func (r VendorRequest) apply(v *models.Vendor) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&v.Name, r.Name)
	set(&v.ContactPerson, r.ContactPerson)
	set(&v.Email, r.Email)
	set(&v.Phone, r.Phone)
	set(&v.Address, r.Address)
	set(&v.Notes, r.Notes)
}

// vendorNameTaken reports whether another vendor of the same store already
// uses name, ignoring case.
func vendorNameTaken(db *gorm.DB, storeID *uint, name string, exclude uint) (bool, error) {
	q := db.Model(&models.Vendor{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if storeID == nil {
		q = q.Where("store_id IS NULL")
	} else {
		q = q.Where("store_id = ?", *storeID)
	}
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// GET /api/vendors
func ListVendorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := tenant.FromCtx(c).Apply(database.DB.Model(&models.Vendor{}), "store_id")
		if s := strings.TrimSpace(c.Query("q")); s != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
		}
		var vendors []models.Vendor
		if err := q.Order("name asc").Find(&vendors).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list vendors")
		}
		return c.JSON(vendors)
	}
}

// POST /api/vendors
func CreateVendorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body VendorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		var v models.Vendor
		body.apply(&v)
		if v.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Vendor name is required")
		}
		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}
		v.StoreID = storeID

		taken, err := vendorNameTaken(database.DB, v.StoreID, v.Name, 0)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check vendor name")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "A vendor with this name already exists")
		}
		if err := database.DB.Create(&v).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create vendor")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: v.StoreID, EntityType: "vendor", EntityID: v.ID,
			Action: audit.ActionCreate, Description: fmt.Sprintf("Vendor %q created", v.Name),
		})
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// PUT /api/vendors/:id
func UpdateVendorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := scopedVendor(c)
		if err != nil {
			return err
		}
		var body VendorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.apply(v)
		if v.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Vendor name cannot be empty")
		}
		taken, err := vendorNameTaken(database.DB, v.StoreID, v.Name, v.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check vendor name")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "A vendor with this name already exists")
		}
		if err := database.DB.Save(v).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update vendor")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: v.StoreID, EntityType: "vendor", EntityID: v.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Vendor %q updated", v.Name),
		})
		return c.JSON(v)
	}
}

// DELETE /api/vendors/:id
func DeleteVendorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := scopedVendor(c)
		if err != nil {
			return err
		}
		var open int64
		database.DB.Model(&models.PurchaseOrder{}).
			Where("vendor_id = ? AND status IN ?", v.ID, []models.PurchaseOrderStatus{models.PODraft, models.POOrdered}).
			Count(&open)
		if open > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Vendor has open purchase orders")
		}
		if err := database.DB.Delete(v).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete vendor")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: v.StoreID, EntityType: "vendor", EntityID: v.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("Vendor %q deleted", v.Name),
		})
		return c.JSON(fiber.Map{"message": "Vendor deleted"})
	}
}

func scopedVendor(c *fiber.Ctx) (*models.Vendor, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid vendor id")
	}
	var v models.Vendor
	if err := database.DB.First(&v, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Vendor not found")
	}
	if err := tenant.Check(c, v.StoreID); err != nil {
		return nil, err
	}
	return &v, nil
}

package procurement

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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItemRequest struct {
	Description string          `json:"description"`
	ModelNumber string          `json:"model_number"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderRequest struct {
	StoreID      *uint              `json:"store_id"`
	VendorID     *uint              `json:"vendor_id"`
	Items        []OrderItemRequest `json:"items"`
	OrderDate    *time.Time         `json:"order_date"`
	ExpectedDate *time.Time         `json:"expected_date"`
	Notes        string             `json:"notes"`
}

type StatusRequest struct {
	Status models.PurchaseOrderStatus `json:"status"`
}

var errInvalidItem = errors.New("invalid purchase order item")

// buildItems validates the request lines.
func buildItems(in []OrderItemRequest) ([]models.PurchaseOrderItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", errInvalidItem)
	}
	items := make([]models.PurchaseOrderItem, 0, len(in))
	for i, it := range in {
		desc := strings.TrimSpace(it.Description)
		switch {
		case desc == "":
			return nil, fmt.Errorf("%w: line %d has no description", errInvalidItem, i+1)
		case it.Quantity <= 0:
			return nil, fmt.Errorf("%w: line %d quantity must be positive", errInvalidItem, i+1)
		case it.UnitPrice.IsNegative():
			return nil, fmt.Errorf("%w: line %d price cannot be negative", errInvalidItem, i+1)
		}
		items = append(items, models.PurchaseOrderItem{
			Description: desc,
			ModelNumber: strings.TrimSpace(it.ModelNumber),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items, nil
}

// GET /api/purchase-orders?status&vendor_id&page&limit
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := tenant.FromCtx(c).Apply(database.DB.Model(&models.PurchaseOrder{}), "store_id")
		if s := c.Query("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		if v := c.QueryInt("vendor_id"); v > 0 {
			q = q.Where("vendor_id = ?", v)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count purchase orders")
		}
		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var orders []models.PurchaseOrder
		if err := q.Scopes(page.Scope).Preload("Vendor").Preload("Items").
			Order("created_at desc").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list purchase orders")
		}
		return c.JSON(fiber.Map{"items": orders, "total": total, "page": page.Page, "pages": page.Pages(total)})
	}
}

// GET /api/purchase-orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		po, err := scopedOrder(c)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body OrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		items, err := buildItems(body.Items)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}
		if err := checkVendor(c, body.VendorID); err != nil {
			return err
		}

		po := models.PurchaseOrder{
			PONumber:     models.NewNumber("PO"),
			StoreID:      storeID,
			VendorID:     body.VendorID,
			Status:       models.PODraft,
			OrderDate:    time.Now(),
			ExpectedDate: body.ExpectedDate,
			Notes:        strings.TrimSpace(body.Notes),
			CreatedByID:  &user.ID,
			Items:        items,
		}
		if body.OrderDate != nil {
			po.OrderDate = *body.OrderDate
		}
		po.Recalculate()

		if err := database.DB.Create(&po).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create purchase order")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: po.StoreID, EntityType: "purchase_order", EntityID: po.ID,
			Action:      audit.ActionCreate,
			Description: fmt.Sprintf("Purchase order %s created (%s)", po.PONumber, po.Total.StringFixed(2)),
		})
		return c.Status(fiber.StatusCreated).JSON(po)
	}
}

// PUT /api/purchase-orders/:id replaces header fields and lines of a draft.
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		po, err := scopedOrder(c)
		if err != nil {
			return err
		}
		if po.Status != models.PODraft {
			return fiber.NewError(fiber.StatusBadRequest, "Only draft purchase orders can be edited")
		}
		var body OrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Items != nil {
			items, err := buildItems(body.Items)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			po.Items = items
		}
		if body.VendorID != nil {
			if err := checkVendor(c, body.VendorID); err != nil {
				return err
			}
			po.VendorID = body.VendorID
			po.Vendor = nil
		}
		if body.OrderDate != nil {
			po.OrderDate = *body.OrderDate
		}
		if body.ExpectedDate != nil {
			po.ExpectedDate = body.ExpectedDate
		}
		if body.Notes != "" {
			po.Notes = strings.TrimSpace(body.Notes)
		}
		po.Recalculate()

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if body.Items != nil {
				if err := tx.Where("purchase_order_id = ?", po.ID).Delete(&models.PurchaseOrderItem{}).Error; err != nil {
					return err
				}
				for i := range po.Items {
					po.Items[i].ID = 0
					po.Items[i].PurchaseOrderID = po.ID
				}
				if err := tx.Create(&po.Items).Error; err != nil {
					return err
				}
			}
			return tx.Omit("Items", "Vendor").Save(po).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update purchase order")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: po.StoreID, EntityType: "purchase_order", EntityID: po.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Purchase order %s updated", po.PONumber),
		})
		return c.JSON(po)
	}
}

// PUT /api/purchase-orders/:id/status {status}
func UpdateOrderStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		po, err := scopedOrder(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if !po.Status.CanTransition(body.Status) {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Cannot move purchase order from %s to %s", po.Status, body.Status))
		}

		prev := po.Status
		po.Status = body.Status
		if body.Status == models.POReceived {
			now := time.Now()
			po.ReceivedAt = &now
		}
		if err := database.DB.Model(po).Select("status", "received_at").Updates(po).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update purchase order")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: po.StoreID, EntityType: "purchase_order", EntityID: po.ID,
			Action:      audit.ActionUpdate,
			Description: fmt.Sprintf("Purchase order %s: %s -> %s", po.PONumber, prev, po.Status),
		})
		return c.JSON(po)
	}
}

// DELETE /api/purchase-orders/:id (drafts and cancelled orders only)
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		po, err := scopedOrder(c)
		if err != nil {
			return err
		}
		if po.Status != models.PODraft && po.Status != models.POCancelled {
			return fiber.NewError(fiber.StatusBadRequest, "Only draft or cancelled purchase orders can be deleted")
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("purchase_order_id = ?", po.ID).Delete(&models.PurchaseOrderItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.PurchaseOrder{}, po.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete purchase order")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: po.StoreID, EntityType: "purchase_order", EntityID: po.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("Purchase order %s deleted", po.PONumber),
		})
		return c.JSON(fiber.Map{"message": "Purchase order deleted"})
	}
}

func scopedOrder(c *fiber.Ctx) (*models.PurchaseOrder, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid purchase order id")
	}
	var po models.PurchaseOrder
	if err := database.DB.Preload("Vendor").Preload("Items").First(&po, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Purchase order not found")
	}
	if err := tenant.Check(c, po.StoreID); err != nil {
		return nil, err
	}
	return &po, nil
}

func checkVendor(c *fiber.Ctx, vendorID *uint) error {
	if vendorID == nil {
		return nil
	}
	var v models.Vendor
	if err := database.DB.First(&v, *vendorID).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Vendor not found")
	}
	return tenant.Check(c, v.StoreID)
}

package passes

import (
	"fmt"
	"strings"
	"time"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type PassRequest struct {
	StoreID        *uint             `json:"store_id"`
	Type           models.PassType   `json:"type"`
	IssuedTo       string            `json:"issued_to"`
	IssuedToPhone  string            `json:"issued_to_phone"`
	Purpose        string            `json:"purpose"`
	Items          []models.PassItem `json:"items"`
	ExpectedReturn *time.Time        `json:"expected_return"`
}

func validPassType(t models.PassType) bool {
	return t == models.PassOutbound || t == models.PassInbound || t == models.PassReturnable
}

// cleanItems trims the lines and defaults quantity to 1.
func cleanItems(in []models.PassItem) ([]models.PassItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("at least one item is required")
	}
	out := make([]models.PassItem, 0, len(in))
	for i, it := range in {
		it.Description = strings.TrimSpace(it.Description)
		it.SerialNumber = strings.TrimSpace(it.SerialNumber)
		if it.Description == "" && it.SerialNumber == "" {
			return nil, fmt.Errorf("item %d needs a description or serial number", i+1)
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out, nil
}

// closedStatus is Returned for returnable passes and Closed otherwise.
func closedStatus(t models.PassType) models.PassStatus {
	if t == models.PassReturnable {
		return models.PassReturned
	}
	return models.PassClosed
}

// GET /api/passes?status&type&page&limit
func ListPassesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := tenant.FromCtx(c).Apply(database.DB.Model(&models.Pass{}), "store_id")
		if s := c.Query("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		if s := c.Query("type"); s != "" {
			q = q.Where("type = ?", s)
		}
		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count passes")
		}
		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var rows []models.Pass
		if err := q.Scopes(page.Scope).Order("created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list passes")
		}
		return c.JSON(fiber.Map{"items": rows, "total": total, "page": page.Page, "pages": page.Pages(total)})
	}
}

// GET /api/passes/:id
func GetPassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := scopedPass(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/passes
func CreatePassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body PassRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Type == "" {
			body.Type = models.PassOutbound
		}
		if !validPassType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Pass type must be Outbound, Inbound or Returnable")
		}
		body.IssuedTo = strings.TrimSpace(body.IssuedTo)
		if body.IssuedTo == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Issued to is required")
		}
		items, err := cleanItems(body.Items)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}

		p := models.Pass{
			PassNumber:     models.NewNumber("GP"),
			StoreID:        storeID,
			Type:           body.Type,
			IssuedTo:       body.IssuedTo,
			IssuedToPhone:  strings.TrimSpace(body.IssuedToPhone),
			Purpose:        strings.TrimSpace(body.Purpose),
			Items:          datatypes.NewJSONType(items),
			Status:         models.PassOpen,
			ExpectedReturn: body.ExpectedReturn,
			IssuedByID:     &user.ID,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create pass")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "pass", EntityID: p.ID,
			Action:      audit.ActionCreate,
			Description: fmt.Sprintf("%s pass %s issued to %s (%d items)", p.Type, p.PassNumber, p.IssuedTo, len(items)),
			Details:     items,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// POST /api/passes/:id/close
func ClosePassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := scopedPass(c)
		if err != nil {
			return err
		}
		if p.Status != models.PassOpen {
			return fiber.NewError(fiber.StatusBadRequest, "Pass is already closed")
		}
		now := time.Now()
		p.Status = closedStatus(p.Type)
		p.ClosedAt = &now
		if err := database.DB.Model(p).Select("status", "closed_at").Updates(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not close pass")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "pass", EntityID: p.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Pass %s %s", p.PassNumber, strings.ToLower(string(p.Status))),
		})
		return c.JSON(p)
	}
}

// DELETE /api/passes/:id (Admin)
func DeletePassHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := scopedPass(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&models.Pass{}, p.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete pass")
		}
		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "pass", EntityID: p.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("Pass %s deleted", p.PassNumber),
		})
		return c.JSON(fiber.Map{"message": "Pass deleted"})
	}
}

func scopedPass(c *fiber.Ctx) (*models.Pass, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid pass id")
	}
	var p models.Pass
	if err := database.DB.First(&p, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Pass not found")
	}
	if err := tenant.Check(c, p.StoreID); err != nil {
		return nil, err
	}
	return &p, nil
}

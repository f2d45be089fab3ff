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
)

type PermitRequest struct {
	StoreID      *uint     `json:"store_id"`
	Title        string    `json:"title"`
	Requester    string    `json:"requester"`
	WorkLocation string    `json:"work_location"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

type DecisionRequest struct {
	Note string `json:"note"`
}

// validatePermit checks the required fields and the date range.
func validatePermit(r *PermitRequest) error {
	r.Title = strings.TrimSpace(r.Title)
	r.Requester = strings.TrimSpace(r.Requester)
	switch {
	case r.Title == "":
		return fmt.Errorf("title is required")
	case r.Requester == "":
		return fmt.Errorf("requester is required")
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return fmt.Errorf("start and end dates are required")
	case r.EndDate.Before(r.StartDate):
		return fmt.Errorf("end date is before start date")
	}
	return nil
}

// GET /api/permits?status&page&limit
func ListPermitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := tenant.FromCtx(c).Apply(database.DB.Model(&models.Permit{}), "store_id")
		if s := c.Query("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count permits")
		}
		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var rows []models.Permit
		if err := q.Scopes(page.Scope).Order("start_date desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list permits")
		}
		return c.JSON(fiber.Map{"items": rows, "total": total, "page": page.Page, "pages": page.Pages(total)})
	}
}

// GET /api/permits/:id
func GetPermitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := scopedPermit(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/permits
func CreatePermitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body PermitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validatePermit(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}

		p := models.Permit{
			PermitNumber: models.NewNumber("WP"),
			StoreID:      storeID,
			Title:        body.Title,
			Requester:    body.Requester,
			WorkLocation: strings.TrimSpace(body.WorkLocation),
			Description:  strings.TrimSpace(body.Description),
			StartDate:    body.StartDate,
			EndDate:      body.EndDate,
			Status:       models.PermitPending,
			CreatedByID:  &user.ID,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create permit")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "permit", EntityID: p.ID,
			Action: audit.ActionCreate, Description: fmt.Sprintf("Permit %s requested: %s", p.PermitNumber, p.Title),
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// POST /api/permits/:id/approve (Admin)
func ApprovePermitHandler() fiber.Handler {
	return decide(models.PermitApproved, audit.ActionApprove)
}

// POST /api/permits/:id/reject (Admin)
func RejectPermitHandler() fiber.Handler {
	return decide(models.PermitRejected, audit.ActionReject)
}

func decide(status models.PermitStatus, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		p, err := scopedPermit(c)
		if err != nil {
			return err
		}
		if p.Status != models.PermitPending {
			return fiber.NewError(fiber.StatusBadRequest, "Permit has already been decided")
		}
		var body DecisionRequest
		_ = c.BodyParser(&body)

		p.Status = status
		p.ApprovedByID = &user.ID
		p.DecisionNote = strings.TrimSpace(body.Note)
		if err := database.DB.Model(p).Select("status", "approved_by_id", "decision_note").Updates(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update permit")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "permit", EntityID: p.ID,
			Action: action, Description: fmt.Sprintf("Permit %s %s", p.PermitNumber, strings.ToLower(string(status))),
		})
		return c.JSON(p)
	}
}

// POST /api/permits/:id/close
func ClosePermitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := scopedPermit(c)
		if err != nil {
			return err
		}
		if p.Status != models.PermitApproved {
			return fiber.NewError(fiber.StatusBadRequest, "Only approved permits can be closed")
		}
		p.Status = models.PermitClosed
		if err := database.DB.Model(p).Update("status", p.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not close permit")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: p.StoreID, EntityType: "permit", EntityID: p.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("Permit %s closed", p.PermitNumber),
		})
		return c.JSON(p)
	}
}

func scopedPermit(c *fiber.Ctx) (*models.Permit, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid permit id")
	}
	var p models.Permit
	if err := database.DB.First(&p, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Permit not found")
	}
	if err := tenant.Check(c, p.StoreID); err != nil {
		return nil, err
	}
	return &p, nil
}

package requests

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
	"gorm.io/gorm"
)

type CreateRequest struct {
	StoreID      *uint  `json:"store_id"`
	ItemName     string `json:"item_name"`
	ModelNumber  string `json:"model_number"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	TicketNumber string `json:"ticket_number"`
}

type ReviewRequest struct {
	Status models.RequestStatus `json:"status"`
	Note   string               `json:"note"`
}

// CanReview reports whether a request in status from may be moved to next.
func CanReview(from, next models.RequestStatus) bool {
	switch from {
	case models.RequestPending:
		return next == models.RequestApproved || next == models.RequestRejected
	case models.RequestApproved:
		return next == models.RequestFulfilled || next == models.RequestRejected
	}
	return false
}

// visible limits q to the scope, and technicians to their own requests.
func visible(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	q = tenant.FromCtx(c).Apply(q, "store_id")
	if !auth.IsAdmin(user) {
		q = q.Where("requester_id = ?", user.ID)
	}
	return q, nil
}

// GET /api/requests?status&page&limit
func ListRequestsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := visible(c, database.DB.Model(&models.Request{}))
		if err != nil {
			return err
		}
		if s := c.Query("status"); s != "" {
			q = q.Where("status = ?", s)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count requests")
		}
		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var rows []models.Request
		if err := q.Scopes(page.Scope).Preload("Requester").Order("created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list requests")
		}
		return c.JSON(fiber.Map{"items": rows, "total": total, "page": page.Page, "pages": page.Pages(total)})
	}
}

// GET /api/requests/:id
func GetRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := loadRequest(c)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

// POST /api/requests
func CreateRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.ItemName = strings.TrimSpace(body.ItemName)
		if body.ItemName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Item name is required")
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}
		if body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Quantity must be positive")
		}
		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}

		r := models.Request{
			RequestNumber: models.NewNumber("REQ"),
			StoreID:       storeID,
			RequesterID:   user.ID,
			ItemName:      body.ItemName,
			ModelNumber:   strings.TrimSpace(body.ModelNumber),
			Quantity:      body.Quantity,
			Reason:        strings.TrimSpace(body.Reason),
			TicketNumber:  strings.TrimSpace(body.TicketNumber),
			Status:        models.RequestPending,
		}
		if err := database.DB.Create(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create request")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: r.StoreID, EntityType: "request", EntityID: r.ID,
			Action:      audit.ActionCreate,
			Description: fmt.Sprintf("Request %s: %d x %s", r.RequestNumber, r.Quantity, r.ItemName),
		})
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// PUT /api/requests/:id/review {status, note} (Admin)
func ReviewRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		r, err := loadRequest(c)
		if err != nil {
			return err
		}
		var body ReviewRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if !CanReview(r.Status, body.Status) {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Cannot move request from %s to %s", r.Status, body.Status))
		}

		now := time.Now()
		r.Status = body.Status
		r.ReviewNote = strings.TrimSpace(body.Note)
		r.ReviewedByID = &user.ID
		r.ReviewedAt = &now
		if err := database.DB.Model(r).Select("status", "review_note", "reviewed_by_id", "reviewed_at").Updates(r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update request")
		}

		action := audit.ActionApprove
		if r.Status == models.RequestRejected {
			action = audit.ActionReject
		} else if r.Status == models.RequestFulfilled {
			action = audit.ActionUpdate
		}
		audit.Record(c, audit.LogOptions{
			StoreID: r.StoreID, EntityType: "request", EntityID: r.ID,
			Action: action, Description: fmt.Sprintf("Request %s %s", r.RequestNumber, strings.ToLower(string(r.Status))),
		})
		return c.JSON(r)
	}
}

// DELETE /api/requests/:id: the requester may withdraw a pending request,
// admins may delete any.
func DeleteRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		r, err := loadRequest(c)
		if err != nil {
			return err
		}
		if !auth.IsAdmin(user) && r.Status != models.RequestPending {
			return fiber.NewError(fiber.StatusBadRequest, "Only pending requests can be withdrawn")
		}
		if err := database.DB.Delete(&models.Request{}, r.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete request")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: r.StoreID, EntityType: "request", EntityID: r.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("Request %s deleted", r.RequestNumber),
		})
		return c.JSON(fiber.Map{"message": "Request deleted"})
	}
}

func loadRequest(c *fiber.Ctx) (*models.Request, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request id")
	}
	q, err := visible(c, database.DB.Model(&models.Request{}))
	if err != nil {
		return nil, err
	}
	var r models.Request
	if err := q.Preload("Requester").First(&r, "requests.id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Request not found")
	}
	return &r, nil
}

package inventory

import (
	"fmt"
	"strings"
	"time"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
)

// LifecycleRequest is the body of every transition endpoint. Both
// snake_case and camelCase ids are accepted.
type LifecycleRequest struct {
	AssetID           uint   `json:"asset_id"`
	AssetIDCamel      uint   `json:"assetId"`
	TechnicianID      uint   `json:"technician_id"`
	TechnicianIDCamel uint   `json:"technicianId"`
	TicketNumber      string `json:"ticket_number"`
	Condition         string `json:"condition"`
	Status            string `json:"status"`
	Notes             string `json:"notes"`
	Reason            string `json:"reason"`

	External *models.ExternalAssignee `json:"external"`
}

func (r *LifecycleRequest) assetID() uint {
	if r.AssetID != 0 {
		return r.AssetID
	}
	return r.AssetIDCamel
}

func (r *LifecycleRequest) technicianID() uint {
	if r.TechnicianID != 0 {
		return r.TechnicianID
	}
	return r.TechnicianIDCamel
}

func parseLifecycle(c *fiber.Ctx) (*LifecycleRequest, *models.Asset, error) {
	var body LifecycleRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	body.TicketNumber = strings.TrimSpace(body.TicketNumber)
	a, err := loadAsset(c, body.assetID())
	if err != nil {
		return nil, nil, err
	}
	return &body, a, nil
}

func rejectRetired(a *models.Asset) error {
	if a.State.Retired() {
		return fiber.NewError(fiber.StatusBadRequest, "Asset has been disposed")
	}
	return nil
}

// POST /api/assets/assign {asset_id, technician_id | external{name,phone,note}, ticket_number}
func AssignHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		if err := rejectRetired(a); err != nil {
			return err
		}
		if a.ReturnPending {
			return fiber.NewError(fiber.StatusBadRequest, "Asset has a pending return request")
		}

		now := time.Now()
		var details string
		switch {
		case body.technicianID() != 0:
			var tech models.User
			if err := database.DB.First(&tech, body.technicianID()).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Technician not found")
			}
			if !tenant.FromCtx(c).Allows(tech.AssignedStoreID) && tech.Role != models.RoleSuperAdmin {
				return fiber.NewError(fiber.StatusForbidden, "Technician belongs to another store")
			}
			a.ClearAssignment()
			a.AssignedToID = &tech.ID
			details = "Assigned to " + tech.Name
		case body.External != nil && strings.TrimSpace(body.External.Name) != "":
			a.ClearAssignment()
			a.AssignedExternal = models.ExternalAssignee{
				Name:  strings.TrimSpace(body.External.Name),
				Phone: strings.TrimSpace(body.External.Phone),
				Note:  strings.TrimSpace(body.External.Note),
			}
			details = "Assigned to external " + a.AssignedExternal.Name
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Technician or external assignee is required")
		}

		a.AssignedAt = &now
		a.Status = assetstate.StatusInUse
		if body.TicketNumber != "" {
			a.TicketNumber = body.TicketNumber
		}
		if body.Notes != "" {
			details += ": " + body.Notes
		}

		if err := commit(c, change{
			Asset: a, Action: models.ActionAssignedAdmin, LogAction: audit.ActionAssign,
			Ticket: body.TicketNumber, Details: details,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not assign asset")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/unassign {asset_id, status?, condition?, ticket_number}
func UnassignHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		if !a.IsAssigned() {
			return fiber.NewError(fiber.StatusBadRequest, "Asset is not assigned")
		}

		previous := assigneeName(a)
		a.ClearAssignment()
		a.ReturnPending = false
		a.Status = assetstate.StatusUsed
		if s := strings.TrimSpace(body.Status); s != "" {
			a.Status = s
		}
		if s := strings.TrimSpace(body.Condition); s != "" {
			a.Condition = s
		}

		if err := commit(c, change{
			Asset: a, Action: models.ActionUnassignedAdmin, LogAction: audit.ActionReturn,
			Ticket: body.TicketNumber, Details: "Unassigned from " + previous,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not unassign asset")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/collect {asset_id, ticket_number}: a technician checks
// out an in-store asset to themselves.
func CollectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if a.IsAssigned() || !a.State.InStore() {
			return fiber.NewError(fiber.StatusBadRequest, "Only unassigned in-store assets can be collected")
		}

		now := time.Now()
		a.AssignedToID = &user.ID
		a.AssignedAt = &now
		a.Status = assetstate.StatusInUse
		if body.TicketNumber != "" {
			a.TicketNumber = body.TicketNumber
		}

		if err := commit(c, change{
			Asset: a, Action: models.ActionCollected, LogAction: audit.ActionAssign,
			Ticket: body.TicketNumber, Details: "Collected by " + user.Name,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not collect asset")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/return {asset_id, condition, notes, ticket_number}
func ReturnHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if a.AssignedToID == nil || (*a.AssignedToID != user.ID && !auth.IsAdmin(user)) {
			return fiber.NewError(fiber.StatusForbidden, "Asset is not assigned to you")
		}
		if a.ReturnPending {
			return fiber.NewError(fiber.StatusBadRequest, "A return request is already pending")
		}

		now := time.Now()
		a.ReturnPending = true
		a.ReturnRequest = models.ReturnRequest{
			RequestedByID: &user.ID,
			RequestedAt:   &now,
			Condition:     strings.TrimSpace(body.Condition),
			Notes:         strings.TrimSpace(body.Notes),
			TicketNumber:  body.TicketNumber,
			Status:        models.ReturnPending,
		}

		if err := commit(c, change{
			Asset: a, Action: models.ActionReturnRequested, LogAction: audit.ActionReturn,
			Ticket: body.TicketNumber, Details: fmt.Sprintf("Condition: %s. %s", a.ReturnRequest.Condition, a.ReturnRequest.Notes),
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not request return")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/return-approve {asset_id, notes}
func ReturnApproveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		if !a.ReturnPending {
			return fiber.NewError(fiber.StatusBadRequest, "No pending return request")
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		previous := assigneeName(a)
		now := time.Now()
		a.ClearAssignment()
		a.ReturnPending = false
		a.ReturnRequest.Status = models.ReturnApproved
		a.ReturnRequest.ReviewedByID = &user.ID
		a.ReturnRequest.ReviewedAt = &now
		a.ReturnRequest.ReviewNote = strings.TrimSpace(body.Notes)

		a.Status = returnedStatus(a.ReturnRequest.Condition)
		if a.ReturnRequest.Condition != "" {
			a.Condition = a.ReturnRequest.Condition
		}

		if err := commit(c, change{
			Asset: a, Action: models.ActionReturnApproved, LogAction: audit.ActionApprove,
			Ticket: a.ReturnRequest.TicketNumber, Details: "Returned by " + previous,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not approve return")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/return-reject {asset_id, notes}
func ReturnRejectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		if !a.ReturnPending {
			return fiber.NewError(fiber.StatusBadRequest, "No pending return request")
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		now := time.Now()
		a.ReturnPending = false
		a.ReturnRequest.Status = models.ReturnRejected
		a.ReturnRequest.ReviewedByID = &user.ID
		a.ReturnRequest.ReviewedAt = &now
		a.ReturnRequest.ReviewNote = strings.TrimSpace(body.Notes)

		if err := commit(c, change{
			Asset: a, Action: models.ActionReturnRejected, LogAction: audit.ActionReject,
			Ticket: a.ReturnRequest.TicketNumber, Details: a.ReturnRequest.ReviewNote,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reject return")
		}
		return c.JSON(toResponse(*a))
	}
}

// POST /api/assets/dispose {asset_id, reason, ticket_number}
func DisposeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, a, err := parseLifecycle(c)
		if err != nil {
			return err
		}
		if err := rejectRetired(a); err != nil {
			return err
		}
		reason := strings.TrimSpace(body.Reason)
		if reason == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Disposal reason is required")
		}

		now := time.Now()
		a.ClearAssignment()
		a.ReturnPending = false
		a.Status = assetstate.StatusDisposed
		a.DisposalReason = reason
		a.DisposedAt = &now

		if err := commit(c, change{
			Asset: a, Action: models.ActionDisposed, LogAction: audit.ActionDispose,
			Ticket: body.TicketNumber, Details: reason,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not dispose asset")
		}
		return c.JSON(toResponse(*a))
	}
}

// returnedStatus maps the condition reported on return to a stock status.
func returnedStatus(condition string) string {
	switch assetstate.Resolve("", condition, false).State {
	case assetstate.StateFaulty:
		return assetstate.StatusFaulty
	case assetstate.StateUnderRepair:
		return assetstate.StatusUnderRepair
	}
	return assetstate.StatusUsed
}

func assigneeName(a *models.Asset) string {
	if a.AssignedTo != nil {
		return a.AssignedTo.Name
	}
	if a.AssignedExternal.Name != "" {
		return a.AssignedExternal.Name
	}
	if a.AssignedToID != nil {
		return fmt.Sprintf("user #%d", *a.AssignedToID)
	}
	return "nobody"
}

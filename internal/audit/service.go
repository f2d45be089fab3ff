package audit

import (
	"encoding/json"
	"fmt"
	"log"

	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actions recorded in the activity log.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionAssign  = "assign"
	ActionReturn  = "return"
	ActionDispose = "dispose"
	ActionImport  = "import"
	ActionBulk    = "bulk"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReset   = "reset"
	ActionLogin   = "login"
)

type LogOptions struct {
	// Tx writes inside an open transaction; nil uses database.DB.
	Tx          *gorm.DB
	StoreID     *uint
	UserID      *uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      string
	Description string
	Details     any
}

func WriteLog(opts LogOptions) error {
	db := opts.Tx
	if db == nil {
		db = database.DB
	}

	var details datatypes.JSON
	if opts.Details != nil {
		b, err := json.Marshal(opts.Details)
		if err != nil {
			return fmt.Errorf("encoding log details: %w", err)
		}
		details = datatypes.JSON(b)
	}

	entry := models.ActivityLog{
		StoreID:     opts.StoreID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		Action:      opts.Action,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Description: opts.Description,
		Details:     details,
	}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}
	return nil
}

// Record fills the user from the request and writes the entry. A failed
// write is logged and never fails the request.
func Record(c *fiber.Ctx, opts LogOptions) {
	if user, err := auth.CurrentUser(c); err == nil {
		id := user.ID
		opts.UserID = &id
		opts.UserName = user.Name
	}
	if err := WriteLog(opts); err != nil {
		log.Printf("activity log (%s %s #%d): %v", opts.Action, opts.EntityType, opts.EntityID, err)
	}
}

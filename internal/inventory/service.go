package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityAsset = "asset"

// AssetResponse is an asset plus its resolved display status.
type AssetResponse struct {
	models.Asset
	Display assetstate.Display `json:"display"`
}

func toResponse(a models.Asset) AssetResponse {
	return AssetResponse{Asset: a, Display: a.Display()}
}

func toResponses(assets []models.Asset) []AssetResponse {
	out := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, toResponse(a))
	}
	return out
}

// scopedAssets starts an assets query limited to the request scope.
func scopedAssets(c *fiber.Ctx) (*gorm.DB, error) {
	filter, err := tenant.FromCtx(c).AssetFilter(database.DB)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not resolve store scope")
	}
	return database.DB.Model(&models.Asset{}).Scopes(filter), nil
}

func loadAsset(c *fiber.Ctx, id uint) (*models.Asset, error) {
	if id == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Asset id is required")
	}
	q, err := scopedAssets(c)
	if err != nil {
		return nil, err
	}
	var a models.Asset
	if err := q.Preload("Store").Preload("AssignedTo").First(&a, "assets.id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Asset not found")
	}
	return &a, nil
}

func paramID(c *fiber.Ctx) uint {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0
	}
	return uint(id)
}

// change is one asset mutation with its history line.
type change struct {
	Asset     *models.Asset
	Action    string // history action
	LogAction string // activity log action
	Ticket    string
	Details   string
}

// commit saves the asset, appends exactly one history entry and writes the
// activity log in one transaction.
func commit(c *fiber.Ctx, ch change) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		return commitTx(tx, user, ch)
	})
}

func commitTx(tx *gorm.DB, user *models.User, ch change) error {
	a := ch.Asset
	q := tx.Omit(clause.Associations)
	if a.ID == 0 {
		if err := q.Create(a).Error; err != nil {
			return fmt.Errorf("creating asset: %w", err)
		}
	} else if err := q.Save(a).Error; err != nil {
		return fmt.Errorf("saving asset %d: %w", a.ID, err)
	}

	userID := user.ID
	h := models.AssetHistory{
		AssetID:      a.ID,
		Action:       ch.Action,
		TicketNumber: ch.Ticket,
		UserID:       &userID,
		UserName:     user.Name,
		Details:      truncate(ch.Details, 500),
		Date:         time.Now(),
	}
	if err := tx.Create(&h).Error; err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	// batch callers write one summary entry instead
	if ch.LogAction == "" {
		return nil
	}
	return audit.WriteLog(audit.LogOptions{
		Tx:          tx,
		StoreID:     a.StoreID,
		UserID:      &userID,
		UserName:    user.Name,
		EntityType:  entityAsset,
		EntityID:    a.ID,
		Action:      ch.LogAction,
		Description: fmt.Sprintf("%s: %s", ch.Action, a.Name),
		Details: map[string]any{
			"serial_number": a.SerialNumber,
			"status":        a.Status,
			"state":         a.State,
			"ticket_number": ch.Ticket,
		},
	})
}

// serialTaken reports whether another asset in the same store already
// carries serial, ignoring case.
func serialTaken(db *gorm.DB, storeID *uint, serial string, exclude uint) (bool, error) {
	serial = strings.ToLower(strings.TrimSpace(serial))
	if serial == "" {
		return false, nil
	}
	q := db.Model(&models.Asset{}).Where("LOWER(serial_number) = ?", serial)
	if storeID == nil {
		q = q.Where("store_id IS NULL")
	} else {
		q = q.Where("store_id = ?", *storeID)
	}
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilters adds the list filters shared by list and export.
func applyFilters(c *fiber.Ctx, q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(c.Query("q")); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"(LOWER(assets.name) LIKE ? OR LOWER(assets.model_number) LIKE ? OR LOWER(assets.serial_number) LIKE ? "+
				"OR LOWER(assets.mac_address) LIKE ? OR LOWER(assets.product_name) LIKE ? OR LOWER(assets.manufacturer) LIKE ?)",
			like, like, like, like, like, like,
		)
	}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		if st, ok := assetstate.Parse(s); ok {
			q = q.Where("assets.state = ?", st)
		} else {
			q = q.Where("assets.status = ?", s)
		}
	}
	for param, column := range map[string]string{
		"location":     "assets.location",
		"manufacturer": "assets.manufacturer",
		"product_name": "assets.product_name",
		"category":     "assets.category",
		"model_number": "assets.model_number",
	} {
		if s := strings.TrimSpace(c.Query(param)); s != "" {
			q = q.Where("LOWER("+column+") = ?", strings.ToLower(s))
		}
	}
	if id, err := tenant.ParseStoreID(c.Query("store")); err == nil {
		q = q.Where("assets.store_id = ?", id)
	}
	if s := c.Query("assigned_to"); s != "" {
		if id := parseID(s); id != 0 {
			q = q.Where("assets.assigned_to_id = ?", id)
		} else if s == "none" {
			q = q.Where("assets.assigned_to_id IS NULL AND COALESCE(assets.assigned_external_name, '') = ''")
		}
	}
	if s := c.Query("return_pending"); s != "" {
		q = q.Where("assets.return_pending = ?", s == "true" || s == "1")
	}
	return q
}

func parseID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func optionalString(dst *string, src *string) bool {
	if src == nil {
		return false
	}
	v := strings.TrimSpace(*src)
	if v == *dst {
		return false
	}
	*dst = v
	return true
}

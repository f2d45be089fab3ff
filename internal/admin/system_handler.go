package admin

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/backup"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResetRequest accepts storeId as "all", a number or a numeric string.
type ResetRequest struct {
	Password     string `json:"password"`
	StoreID      any    `json:"storeId"`
	IncludeUsers bool   `json:"includeUsers"`
}

func (r ResetRequest) storeID() (uint, bool, error) {
	switch v := r.StoreID.(type) {
	case nil:
		return 0, true, nil
	case float64:
		if v <= 0 {
			return 0, false, fmt.Errorf("invalid store id")
		}
		return uint(v), false, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "all") {
			return 0, true, nil
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return 0, false, fmt.Errorf("invalid store id %q", v)
		}
		return uint(n), false, nil
	}
	return 0, false, fmt.Errorf("invalid store id")
}

// Reset wipes transactional data in scope inside one transaction. Users,
// stores and the catalog are kept, except non-Super-Admin users when
// includeUsers is set.
func Reset(db *gorm.DB, scope tenant.Scope, includeUsers bool) (map[string]int64, error) {
	deleted := make(map[string]int64)

	err := db.Transaction(func(tx *gorm.DB) error {
		base := func() *gorm.DB { return tx.Session(&gorm.Session{NewDB: true, AllowGlobalUpdate: true}) }

		filter, err := scope.AssetFilter(base())
		if err != nil {
			return err
		}
		var assetIDs []uint
		if err := base().Model(&models.Asset{}).Scopes(filter).Pluck("assets.id", &assetIDs).Error; err != nil {
			return err
		}
		if len(assetIDs) > 0 {
			res := base().Where("asset_id IN ?", assetIDs).Delete(&models.AssetHistory{})
			if res.Error != nil {
				return res.Error
			}
			deleted["asset_history"] = res.RowsAffected
			res = base().Where("id IN ?", assetIDs).Delete(&models.Asset{})
			if res.Error != nil {
				return res.Error
			}
			deleted["assets"] = res.RowsAffected
		}

		var poIDs []uint
		if err := scope.Apply(base().Model(&models.PurchaseOrder{}), "store_id").Pluck("id", &poIDs).Error; err != nil {
			return err
		}
		if len(poIDs) > 0 {
			res := base().Where("purchase_order_id IN ?", poIDs).Delete(&models.PurchaseOrderItem{})
			if res.Error != nil {
				return res.Error
			}
			deleted["purchase_order_items"] = res.RowsAffected
		}

		for name, m := range map[string]any{
			"purchase_orders": &models.PurchaseOrder{},
			"requests":        &models.Request{},
			"vendors":         &models.Vendor{},
			"passes":          &models.Pass{},
			"permits":         &models.Permit{},
			"activity_logs":   &models.ActivityLog{},
		} {
			res := scope.Apply(base(), "store_id").Delete(m)
			if res.Error != nil {
				return fmt.Errorf("clearing %s: %w", name, res.Error)
			}
			deleted[name] = res.RowsAffected
		}

		if includeUsers {
			var userIDs []uint
			if err := scope.Apply(base().Model(&models.User{}), "assigned_store_id").
				Where("role <> ?", models.RoleSuperAdmin).
				Pluck("id", &userIDs).Error; err != nil {
				return err
			}
			if len(userIDs) == 0 {
				return nil
			}
			released, err := releaseAssets(base(), userIDs)
			if err != nil {
				return err
			}
			deleted["released_assets"] = released
			res := base().Where("id IN ?", userIDs).Delete(&models.User{})
			if res.Error != nil {
				return res.Error
			}
			deleted["users"] = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// releaseAssets unassigns assets outside the wiped scope that are held by
// users about to be deleted.
func releaseAssets(tx *gorm.DB, userIDs []uint) (int64, error) {
	var held []models.Asset
	if err := tx.Where("assigned_to_id IN ?", userIDs).Find(&held).Error; err != nil {
		return 0, err
	}
	now := time.Now()
	for i := range held {
		a := &held[i]
		a.ClearAssignment()
		a.ReturnPending = false
		if a.Status == assetstate.StatusInUse {
			a.Status = assetstate.StatusUsed
		}
		if err := tx.Omit(clause.Associations).Save(a).Error; err != nil {
			return 0, fmt.Errorf("releasing asset %d: %w", a.ID, err)
		}
		h := models.AssetHistory{
			AssetID: a.ID,
			Action:  models.ActionUnassignedAdmin,
			Details: "Assignee removed by system reset",
			Date:    now,
		}
		if err := tx.Create(&h).Error; err != nil {
			return 0, fmt.Errorf("writing history: %w", err)
		}
		if err := audit.WriteLog(audit.LogOptions{
			Tx:          tx,
			StoreID:     a.StoreID,
			EntityType:  "asset",
			EntityID:    a.ID,
			Action:      audit.ActionReturn,
			Description: fmt.Sprintf("%s: %s", models.ActionUnassignedAdmin, a.Name),
			Details:     map[string]any{"serial_number": a.SerialNumber, "reason": "system reset"},
		}); err != nil {
			return 0, err
		}
	}
	return int64(len(held)), nil
}

// POST /api/system/reset {password, storeId, includeUsers} (Super Admin)
func ResetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body ResetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Password == "" || !auth.CheckPassword(actor.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "Password is incorrect")
		}

		id, all, err := body.storeID()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		scope := tenant.Unrestricted()
		var logStore *uint
		if !all {
			var store models.Store
			if err := database.DB.First(&store, id).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Store not found")
			}
			ids, err := tenant.GetStoreIds(database.DB, id)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not resolve stores")
			}
			scope = tenant.Restrict(ids)
			logStore = &id
		}

		deleted, err := Reset(database.DB, scope, body.IncludeUsers)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Reset failed, nothing was deleted")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     logStore,
			EntityType:  "system",
			Action:      audit.ActionReset,
			Description: fmt.Sprintf("System reset (stores: %s, users: %t)", scope, body.IncludeUsers),
			Details:     deleted,
		})
		return c.JSON(fiber.Map{"message": "Reset complete", "deleted": deleted})
	}
}

// GET /api/system/backup (Super Admin) streams a fresh snapshot.
func BackupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := backup.Take(c.UserContext(), database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not take backup")
		}
		var buf bytes.Buffer
		if err := backup.Encode(&buf, snap); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not encode backup")
		}

		c.Set(fiber.HeaderContentType, "application/gzip")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="backup-%s.json.gz"`, snap.TakenAt.Format("20060102T150405Z")))
		return c.Send(buf.Bytes())
	}
}

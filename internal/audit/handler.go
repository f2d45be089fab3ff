package audit

import (
	"strconv"

	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
)

// GET /api/activity-logs?entity_type=asset&entity_id=1&user_id=2&action=assign&page=1&limit=20
func ListActivityLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := tenant.FromCtx(c)
		dbq := scope.Apply(database.DB.Model(&models.ActivityLog{}), "store_id")

		if v := c.Query("entity_type"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.Query("action"); v != "" {
			dbq = dbq.Where("action = ?", v)
		}
		if id, err := strconv.ParseUint(c.Query("entity_id"), 10, 32); err == nil && id > 0 {
			dbq = dbq.Where("entity_id = ?", id)
		}
		if id, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil && id > 0 {
			dbq = dbq.Where("user_id = ?", id)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count activity logs")
		}

		page := database.ParsePage(c.Query("page"), c.Query("limit"))
		var logs []models.ActivityLog
		if err := page.Scope(dbq).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list activity logs")
		}

		return c.JSON(fiber.Map{
			"items": logs,
			"total": total,
			"page":  page.Page,
			"pages": page.Pages(total),
		})
	}
}

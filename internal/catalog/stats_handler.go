package catalog

import (
	"fmt"

	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"
	"asset-tracker-backend/internal/tree"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GroupCounts runs the grouped asset aggregation: one row per lowercased
// model number, lowercased product name and canonical state.
func GroupCounts(db *gorm.DB, scope tenant.Scope) ([]GroupCount, error) {
	filter, err := scope.AssetFilter(db)
	if err != nil {
		return nil, err
	}

	var rows []GroupCount
	err = db.Model(&models.Asset{}).
		Scopes(filter).
		Select("LOWER(TRIM(COALESCE(assets.model_number, ''))) AS model_number, " +
			"LOWER(TRIM(COALESCE(assets.product_name, ''))) AS product_name, " +
			"assets.state AS state, COUNT(*) AS count").
		Group("LOWER(TRIM(COALESCE(assets.model_number, ''))), LOWER(TRIM(COALESCE(assets.product_name, ''))), assets.state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping assets: %w", err)
	}
	return rows, nil
}

// Stats builds the stats rows for source "products", "categories" or
// "all" (products first).
func Stats(db *gorm.DB, scope tenant.Scope, source string) ([]StatRow, error) {
	var roots []tree.Node[NodeInfo]

	if source == "products" || source == "all" {
		products, err := LoadProducts(db, scope)
		if err != nil {
			return nil, err
		}
		roots = append(roots, ProductNodes(BuildProductTree(products))...)
	}
	if source == "categories" || source == "all" {
		var categories []models.AssetCategory
		err := scope.ApplyShared(db.Model(&models.AssetCategory{}), "store_id").
			Order("name asc").
			Find(&categories).Error
		if err != nil {
			return nil, fmt.Errorf("loading categories: %w", err)
		}
		roots = append(roots, CategoryNodes(categories)...)
	}

	groups, err := GroupCounts(db, scope)
	if err != nil {
		return nil, err
	}
	return Aggregate(tree.Flatten(roots), groups), nil
}

// GET /api/asset-categories/stats?source=products|categories|all
func StatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		source := c.Query("source", "all")
		switch source {
		case "products", "categories", "all":
		default:
			return fiber.NewError(fiber.StatusBadRequest, "source must be products, categories or all")
		}

		rows, err := Stats(database.DB, tenant.FromCtx(c), source)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not compute statistics")
		}
		if rows == nil {
			rows = []StatRow{}
		}
		return c.JSON(rows)
	}
}

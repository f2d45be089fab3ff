package catalog

import (
	"fmt"
	"strings"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"
	"asset-tracker-backend/internal/tree"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type CategoryRequest struct {
	Name    *string                `json:"name"`
	StoreID *uint                  `json:"store_id"`
	Types   *[]models.CategoryNode `json:"types"`
}

// cleanNodes trims names and drops unnamed nodes at every level.
func cleanNodes(nodes []models.CategoryNode) []models.CategoryNode {
	out := make([]models.CategoryNode, 0, len(nodes))
	for _, n := range nodes {
		n.Name = strings.TrimSpace(n.Name)
		if n.Name == "" {
			continue
		}
		n.ModelNumber = strings.TrimSpace(n.ModelNumber)
		n.Children = cleanNodes(n.Children)
		out = append(out, n)
	}
	return out
}

// validateTypes keeps category trees within the product depth limit, the
// category itself being the first level.
func validateTypes(nodes []models.CategoryNode) error {
	roots := tree.From(nodes,
		func(n models.CategoryNode) string { return n.Name },
		func(n models.CategoryNode) struct{} { return struct{}{} },
		func(n models.CategoryNode) []models.CategoryNode { return n.Children },
	)
	if 1+tree.Depth(roots) > models.MaxProductDepth {
		return fiber.NewError(fiber.StatusBadRequest, ErrTooDeep.Error())
	}
	return nil
}

// GET /api/asset-categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.AssetCategory
		err := tenant.FromCtx(c).ApplyShared(database.DB.Model(&models.AssetCategory{}), "store_id").
			Order("name asc").
			Find(&categories).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list categories")
		}
		return c.JSON(categories)
	}
}

// POST /api/asset-categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is required")
		}

		storeID, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}

		var types []models.CategoryNode
		if body.Types != nil {
			types = cleanNodes(*body.Types)
		}
		if err := validateTypes(types); err != nil {
			return err
		}

		cat := models.AssetCategory{
			Name:    strings.TrimSpace(*body.Name),
			StoreID: storeID,
			Types:   datatypes.NewJSONType(types),
		}
		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create category")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     cat.StoreID,
			EntityType:  "asset_category",
			EntityID:    cat.ID,
			Action:      audit.ActionCreate,
			Description: fmt.Sprintf("Category %q created", cat.Name),
		})
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/asset-categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := writableCategory(c)
		if err != nil {
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Category name cannot be empty")
			}
			cat.Name = name
		}
		if body.Types != nil {
			types := cleanNodes(*body.Types)
			if err := validateTypes(types); err != nil {
				return err
			}
			cat.Types = datatypes.NewJSONType(types)
		}

		if err := database.DB.Save(cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update category")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     cat.StoreID,
			EntityType:  "asset_category",
			EntityID:    cat.ID,
			Action:      audit.ActionUpdate,
			Description: fmt.Sprintf("Category %q updated", cat.Name),
		})
		return c.JSON(cat)
	}
}

// DELETE /api/asset-categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := writableCategory(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&models.AssetCategory{}, cat.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete category")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     cat.StoreID,
			EntityType:  "asset_category",
			EntityID:    cat.ID,
			Action:      audit.ActionDelete,
			Description: fmt.Sprintf("Category %q deleted", cat.Name),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/asset-categories/:id/image
func UploadCategoryImageHandler(uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := writableCategory(c)
		if err != nil {
			return err
		}
		rel, err := saveUpload(c, uploadDir, "categories")
		if err != nil {
			return err
		}
		if err := database.DB.Model(cat).Update("image", rel).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not save image")
		}
		cat.Image = rel
		return c.JSON(cat)
	}
}

func writableCategory(c *fiber.Ctx) (*models.AssetCategory, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid category id")
	}
	var cat models.AssetCategory
	if err := database.DB.First(&cat, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Category not found")
	}
	if err := tenant.Check(c, cat.StoreID); err != nil {
		return nil, err
	}
	return &cat, nil
}

package catalog

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/imaging"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"
	"asset-tracker-backend/internal/tree"

	"github.com/gofiber/fiber/v2"
)

type CreateProductRequest struct {
	Name        string `json:"name"`
	ModelNumber string `json:"model_number"`
	ParentID    *uint  `json:"parent_id"`
	StoreID     *uint  `json:"store_id"`
	Position    int    `json:"position"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	ModelNumber *string `json:"model_number"`
	Position    *int    `json:"position"`
	// MoveToRoot detaches the product from its parent; ParentID moves it.
	ParentID   *uint `json:"parent_id"`
	MoveToRoot bool  `json:"move_to_root"`
}

type FlatProduct struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ModelNumber string `json:"model_number"`
	Image       string `json:"image"`
	Path        string `json:"path"`
	Depth       int    `json:"depth"`
}

// GET /api/products?flat=true
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := LoadProducts(database.DB, tenant.FromCtx(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list products")
		}
		roots := BuildProductTree(rows)

		if c.QueryBool("flat") {
			flat := tree.Flatten(ProductNodes(roots))
			res := make([]FlatProduct, 0, len(flat))
			for _, f := range flat {
				res = append(res, FlatProduct{
					ID:          f.Value.ID,
					Name:        f.Name,
					ModelNumber: f.Value.ModelNumber,
					Image:       f.Value.Image,
					Path:        f.Path,
					Depth:       f.Depth,
				})
			}
			return c.JSON(res)
		}

		if roots == nil {
			roots = []models.Product{}
		}
		return c.JSON(roots)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := visibleProduct(c)
		if err != nil {
			return err
		}
		var children []models.Product
		if err := database.DB.Where("parent_id = ?", p.ID).Order("position asc, id asc").Find(&children).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load children")
		}
		p.Children = children
		return c.JSON(p)
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		body.ModelNumber = strings.TrimSpace(body.ModelNumber)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Product name is required")
		}

		p := models.Product{
			Name:        body.Name,
			ModelNumber: body.ModelNumber,
			ParentID:    body.ParentID,
			Position:    body.Position,
		}

		if body.ParentID != nil {
			var parent models.Product
			if err := database.DB.First(&parent, *body.ParentID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Parent product not found")
			}
			// children follow their parent's store
			p.StoreID = parent.StoreID
		} else {
			storeID, err := tenant.WriteStore(c, body.StoreID)
			if err != nil {
				return err
			}
			p.StoreID = storeID
		}
		if err := tenant.Check(c, p.StoreID); err != nil {
			return err
		}

		if err := CheckPlacement(database.DB, 0, p.ParentID); err != nil {
			return placementError(err)
		}

		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create product")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     p.StoreID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      audit.ActionCreate,
			Description: fmt.Sprintf("Product %q created", p.Name),
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := writableProduct(c)
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Product name cannot be empty")
			}
			p.Name = name
		}
		if body.ModelNumber != nil {
			p.ModelNumber = strings.TrimSpace(*body.ModelNumber)
		}
		if body.Position != nil {
			p.Position = *body.Position
		}

		switch {
		case body.MoveToRoot:
			p.ParentID = nil
		case body.ParentID != nil && (p.ParentID == nil || *p.ParentID != *body.ParentID):
			var parent models.Product
			if err := database.DB.First(&parent, *body.ParentID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Parent product not found")
			}
			if err := CheckPlacement(database.DB, p.ID, body.ParentID); err != nil {
				return placementError(err)
			}
			p.ParentID = body.ParentID
		}

		p.Children = nil
		if err := database.DB.Save(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update product")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     p.StoreID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      audit.ActionUpdate,
			Description: fmt.Sprintf("Product %q updated", p.Name),
		})
		return c.JSON(p)
	}
}

// DELETE /api/products/:id removes the product and its whole subtree.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := writableProduct(c)
		if err != nil {
			return err
		}

		deleted, err := DeleteProduct(database.DB, p.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}

		audit.Record(c, audit.LogOptions{
			StoreID:     p.StoreID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      audit.ActionDelete,
			Description: fmt.Sprintf("Product %q deleted with %d descendants", p.Name, deleted-1),
		})
		return c.JSON(fiber.Map{"message": "Product deleted", "deleted": deleted})
	}
}

// POST /api/products/:id/image (multipart field "image")
func UploadProductImageHandler(uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := writableProduct(c)
		if err != nil {
			return err
		}

		rel, err := saveUpload(c, uploadDir, "products")
		if err != nil {
			return err
		}

		p.Image = rel
		p.Children = nil
		if err := database.DB.Model(p).Update("image", rel).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not save image")
		}
		return c.JSON(p)
	}
}

// saveUpload stores the multipart "image" field and returns its public
// path under /uploads.
func saveUpload(c *fiber.Ctx, uploadDir, sub string) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Could not read image")
	}
	defer f.Close()

	rel, err := imaging.Save(f, uploadDir, sub)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return path.Join("/uploads", rel), nil
}

func visibleProduct(c *fiber.Ctx) (*models.Product, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
	}
	var p models.Product
	if err := database.DB.First(&p, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
	}
	if p.StoreID != nil {
		if err := tenant.Check(c, p.StoreID); err != nil {
			return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
	}
	return &p, nil
}

// writableProduct is visibleProduct plus a write check: shared products
// belong to Super Admins.
func writableProduct(c *fiber.Ctx) (*models.Product, error) {
	p, err := visibleProduct(c)
	if err != nil {
		return nil, err
	}
	if err := tenant.Check(c, p.StoreID); err != nil {
		return nil, err
	}
	return p, nil
}

func placementError(err error) error {
	switch {
	case errors.Is(err, ErrTooDeep), errors.Is(err, ErrCycle):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoSuchNode):
		return fiber.NewError(fiber.StatusBadRequest, "Parent product not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Could not check product placement")
}

package catalog

import (
	"errors"
	"fmt"
	"sort"

	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"
	"asset-tracker-backend/internal/tree"

	"gorm.io/gorm"
)

var (
	ErrTooDeep    = fmt.Errorf("product tree is limited to %d levels", models.MaxProductDepth)
	ErrCycle      = errors.New("a product cannot be moved under itself")
	ErrNoSuchNode = errors.New("product not found")
)

// LoadProducts returns every product visible in scope, shared ones
// included, ordered for display.
func LoadProducts(db *gorm.DB, scope tenant.Scope) ([]models.Product, error) {
	var products []models.Product
	err := scope.ApplyShared(db.Model(&models.Product{}), "store_id").
		Order("position asc, id asc").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	return products, nil
}

// BuildProductTree nests flat rows by ParentID. Rows whose parent is not in
// the set become roots.
func BuildProductTree(rows []models.Product) []models.Product {
	byParent := make(map[uint][]models.Product)
	present := make(map[uint]bool, len(rows))
	for _, p := range rows {
		present[p.ID] = true
	}

	var roots []models.Product
	for _, p := range rows {
		p.Children = nil
		if p.ParentID == nil || !present[*p.ParentID] {
			roots = append(roots, p)
			continue
		}
		byParent[*p.ParentID] = append(byParent[*p.ParentID], p)
	}

	var attach func(nodes []models.Product, depth int) []models.Product
	attach = func(nodes []models.Product, depth int) []models.Product {
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Position < nodes[j].Position })
		for i := range nodes {
			// rows with a corrupted parent chain stop here
			if depth >= models.MaxProductDepth*2 {
				break
			}
			nodes[i].Children = attach(byParent[nodes[i].ID], depth+1)
		}
		return nodes
	}
	return attach(roots, 1)
}

func ProductNodes(products []models.Product) []tree.Node[NodeInfo] {
	return tree.From(products,
		func(p models.Product) string { return p.Name },
		func(p models.Product) NodeInfo {
			return NodeInfo{ID: p.ID, Source: SourceProduct, ModelNumber: p.ModelNumber, Image: p.Image}
		},
		func(p models.Product) []models.Product { return p.Children },
	)
}

// CategoryNodes puts each category at the root with its type tree below.
func CategoryNodes(categories []models.AssetCategory) []tree.Node[NodeInfo] {
	out := make([]tree.Node[NodeInfo], 0, len(categories))
	for _, c := range categories {
		out = append(out, tree.Node[NodeInfo]{
			Name:  c.Name,
			Value: NodeInfo{ID: c.ID, Source: SourceCategory, Image: c.Image},
			Children: tree.From(c.Types.Data(),
				func(n models.CategoryNode) string { return n.Name },
				func(n models.CategoryNode) NodeInfo {
					return NodeInfo{ID: c.ID, Source: SourceCategory, ModelNumber: n.ModelNumber, Image: n.Image}
				},
				func(n models.CategoryNode) []models.CategoryNode { return n.Children },
			),
		})
	}
	return out
}

// ProductLevel returns the level of product id, roots being level 1.
func ProductLevel(db *gorm.DB, id uint) (int, error) {
	level := 0
	current := &id
	for current != nil {
		level++
		if level > models.MaxProductDepth*2 {
			return 0, ErrCycle
		}
		var p models.Product
		if err := db.Select("id", "parent_id").First(&p, *current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrNoSuchNode
			}
			return 0, err
		}
		current = p.ParentID
	}
	return level, nil
}

// DescendantIDs returns the ids below id, level by level.
func DescendantIDs(db *gorm.DB, id uint) ([][]uint, error) {
	var levels [][]uint
	frontier := []uint{id}
	seen := map[uint]bool{id: true}
	for len(frontier) > 0 {
		var next []uint
		if err := db.Model(&models.Product{}).Where("parent_id IN ?", frontier).Pluck("id", &next).Error; err != nil {
			return nil, fmt.Errorf("loading children: %w", err)
		}
		fresh := next[:0]
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				fresh = append(fresh, n)
			}
		}
		if len(fresh) == 0 {
			break
		}
		levels = append(levels, fresh)
		frontier = fresh
	}
	return levels, nil
}

// CheckPlacement verifies that moving node (with its subtree) under parent
// keeps the tree within MaxProductDepth. node is 0 for a new product.
func CheckPlacement(db *gorm.DB, node uint, parent *uint) error {
	parentLevel := 0
	if parent != nil {
		if node != 0 && *parent == node {
			return ErrCycle
		}
		lvl, err := ProductLevel(db, *parent)
		if err != nil {
			return err
		}
		parentLevel = lvl
	}

	height := 1
	if node != 0 {
		levels, err := DescendantIDs(db, node)
		if err != nil {
			return err
		}
		if parent != nil {
			for _, lvl := range levels {
				for _, id := range lvl {
					if id == *parent {
						return ErrCycle
					}
				}
			}
		}
		height += len(levels)
	}

	if parentLevel+height > models.MaxProductDepth {
		return ErrTooDeep
	}
	return nil
}

// DeleteProduct removes id and everything below it.
func DeleteProduct(db *gorm.DB, id uint) (int64, error) {
	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		levels, err := DescendantIDs(tx, id)
		if err != nil {
			return err
		}
		ids := []uint{id}
		for _, lvl := range levels {
			ids = append(ids, lvl...)
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxProductDepth is the deepest level a product node may sit at (root = 1).
const MaxProductDepth = 4

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	ModelNumber string    `gorm:"size:100" json:"model_number"`
	Image       string    `gorm:"size:255" json:"image"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	StoreID     *uint     `gorm:"index" json:"store_id"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	Children    []Product `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryNode is one level of the legacy category tree: the first level
// under a category are its types, below that products and their children.
type CategoryNode struct {
	Name        string         `json:"name"`
	ModelNumber string         `json:"model_number,omitempty"`
	Image       string         `json:"image,omitempty"`
	Children    []CategoryNode `json:"children,omitempty"`
}

type AssetCategory struct {
	ID        uint                               `gorm:"primaryKey" json:"id"`
	Name      string                             `gorm:"size:150;not null" json:"name"`
	Image     string                             `gorm:"size:255" json:"image"`
	StoreID   *uint                              `gorm:"index" json:"store_id"`
	Types     datatypes.JSONType[[]CategoryNode] `json:"types"`
	CreatedAt time.Time                          `json:"created_at"`
	UpdatedAt time.Time                          `json:"updated_at"`
}

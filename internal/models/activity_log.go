package models

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	StoreID *uint `gorm:"index" json:"store_id"`

	UserID   *uint  `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // denormalised

	Action     string `gorm:"size:50" json:"action"`
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Description string         `gorm:"size:500" json:"description"`
	Details     datatypes.JSON `json:"details"`
}

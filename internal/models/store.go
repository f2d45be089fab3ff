package models

import "time"

// Store is a tenant node. A main store may have child locations; children
// never have children of their own.
type Store struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Address       string `gorm:"size:255" json:"address"`
	Phone         string `gorm:"size:50" json:"phone"`
	ParentStoreID *uint  `gorm:"index" json:"parent_store_id"`
	IsMainStore   bool   `gorm:"not null;default:false" json:"is_main_store"`

	DeletionRequested     bool       `gorm:"not null;default:false" json:"deletion_requested"`
	DeletionRequestedByID *uint      `json:"deletion_requested_by_id"`
	DeletionRequestedAt   *time.Time `json:"deletion_requested_at"`
	DeletionReason        string     `gorm:"size:255" json:"deletion_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

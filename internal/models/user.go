package models

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "Super Admin"
	RoleAdmin      UserRole = "Admin"
	RoleTechnician UserRole = "Technician"
)

func (r UserRole) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleTechnician
}

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	Username        string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email           string    `gorm:"size:150;index" json:"email"`
	Phone           string    `gorm:"size:50" json:"phone"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	Role            UserRole  `gorm:"size:20;not null;index" json:"role"`
	AssignedStoreID *uint     `gorm:"index" json:"assigned_store_id"` // Super Admin: nil
	AssignedStore   *Store    `json:"assigned_store,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

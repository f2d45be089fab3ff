package models

import (
	"strings"
	"time"

	"asset-tracker-backend/internal/assetstate"

	"gorm.io/gorm"
)

type ExternalAssignee struct {
	Name  string `gorm:"size:100" json:"name"`
	Phone string `gorm:"size:50" json:"phone"`
	Note  string `gorm:"size:255" json:"note"`
}

type ReturnRequestStatus string

const (
	ReturnPending  ReturnRequestStatus = "Pending"
	ReturnApproved ReturnRequestStatus = "Approved"
	ReturnRejected ReturnRequestStatus = "Rejected"
)

// ReturnRequest holds the latest technician-initiated return.
type ReturnRequest struct {
	RequestedByID *uint               `json:"requested_by_id"`
	RequestedAt   *time.Time          `json:"requested_at"`
	Condition     string              `gorm:"size:255" json:"condition"`
	Notes         string              `gorm:"size:500" json:"notes"`
	TicketNumber  string              `gorm:"size:100" json:"ticket_number"`
	Status        ReturnRequestStatus `gorm:"size:20" json:"status"`
	ReviewedByID  *uint               `json:"reviewed_by_id"`
	ReviewedAt    *time.Time          `json:"reviewed_at"`
	ReviewNote    string              `gorm:"size:255" json:"review_note"`
}

type Asset struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:150" json:"name"`
	ModelNumber  string `gorm:"size:100;index" json:"model_number"`
	SerialNumber string `gorm:"size:100;index" json:"serial_number"`
	SerialLast4  string `gorm:"size:4;index" json:"serial_last4"`
	MacAddress   string `gorm:"size:50" json:"mac_address"`
	Manufacturer string `gorm:"size:100" json:"manufacturer"`
	Category     string `gorm:"size:100" json:"category"` // legacy
	ProductName  string `gorm:"size:150;index" json:"product_name"`

	StoreID  *uint  `gorm:"index" json:"store_id"`
	Store    *Store `json:"store,omitempty"`
	Location string `gorm:"size:150;index" json:"location"`

	// Status and Condition are the legacy inputs; State is derived from them.
	Status    string           `gorm:"size:50" json:"status"`
	Condition string           `gorm:"size:255" json:"condition"`
	State     assetstate.State `gorm:"size:20;index" json:"state"`

	AssignedToID     *uint            `gorm:"index" json:"assigned_to_id"`
	AssignedTo       *User            `json:"assigned_to,omitempty"`
	AssignedExternal ExternalAssignee `gorm:"embedded;embeddedPrefix:assigned_external_" json:"assigned_to_external"`
	AssignedAt       *time.Time       `json:"assigned_at"`

	ReturnPending bool          `gorm:"not null;default:false;index" json:"return_pending"`
	ReturnRequest ReturnRequest `gorm:"embedded;embeddedPrefix:return_" json:"return_request"`

	Source         string     `gorm:"size:50" json:"source"`
	VendorName     string     `gorm:"size:150" json:"vendor_name"`
	TicketNumber   string     `gorm:"size:100" json:"ticket_number"`
	DisposalReason string     `gorm:"size:255" json:"disposal_reason"`
	DisposedAt     *time.Time `json:"disposed_at"`
	Image          string     `gorm:"size:255" json:"image"`
	CreatedByID    *uint      `json:"created_by_id"`

	History []AssetHistory `gorm:"constraint:OnDelete:CASCADE" json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAssigned is true for an internal or an external assignee.
func (a *Asset) IsAssigned() bool {
	return a.AssignedToID != nil || strings.TrimSpace(a.AssignedExternal.Name) != ""
}

func (a *Asset) Display() assetstate.Display {
	return assetstate.Resolve(a.Status, a.Condition, a.IsAssigned())
}

// ClearAssignment drops both internal and external assignees.
func (a *Asset) ClearAssignment() {
	a.AssignedToID = nil
	a.AssignedTo = nil
	a.AssignedExternal = ExternalAssignee{}
	a.AssignedAt = nil
}

func (a *Asset) BeforeSave(tx *gorm.DB) error {
	a.SerialNumber = strings.TrimSpace(a.SerialNumber)
	a.SerialLast4 = SerialLast4(a.SerialNumber)
	a.State = a.Display().State
	return nil
}

func SerialLast4(serial string) string {
	if len(serial) <= 4 {
		return serial
	}
	return serial[len(serial)-4:]
}

type AssetHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssetID      uint      `gorm:"index;not null" json:"asset_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	TicketNumber string    `gorm:"size:100" json:"ticket_number"`
	UserID       *uint     `json:"user_id"`
	UserName     string    `gorm:"size:100" json:"user_name"`
	Details      string    `gorm:"size:500" json:"details"`
	Date         time.Time `json:"date"`
}

// History actions.
const (
	ActionCreated         = "Created"
	ActionImported        = "Imported"
	ActionUpdated         = "Updated"
	ActionBulkUpdated     = "Bulk Updated"
	ActionAssignedAdmin   = "Assigned (Admin)"
	ActionUnassignedAdmin = "Unassigned (Admin)"
	ActionCollected       = "Collected (Technician)"
	ActionReturnRequested = "Return Requested"
	ActionReturnApproved  = "Return Approved"
	ActionReturnRejected  = "Return Rejected"
	ActionDisposed        = "Disposed"
)

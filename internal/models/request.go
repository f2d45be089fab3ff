package models

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestApproved  RequestStatus = "Approved"
	RequestRejected  RequestStatus = "Rejected"
	RequestFulfilled RequestStatus = "Fulfilled"
)

// Request is a technician's request for equipment.
type Request struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	RequestNumber string        `gorm:"size:40;uniqueIndex" json:"request_number"`
	StoreID       *uint         `gorm:"index" json:"store_id"`
	RequesterID   uint          `gorm:"index;not null" json:"requester_id"`
	Requester     *User         `json:"requester,omitempty"`
	ItemName      string        `gorm:"size:150;not null" json:"item_name"`
	ModelNumber   string        `gorm:"size:100" json:"model_number"`
	Quantity      int           `gorm:"not null;default:1" json:"quantity"`
	Reason        string        `gorm:"size:500" json:"reason"`
	TicketNumber  string        `gorm:"size:100" json:"ticket_number"`
	Status        RequestStatus `gorm:"size:20;not null;index" json:"status"`
	ReviewedByID  *uint         `json:"reviewed_by_id"`
	ReviewNote    string        `gorm:"size:255" json:"review_note"`
	ReviewedAt    *time.Time    `json:"reviewed_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

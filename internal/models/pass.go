package models

import (
	"time"

	"gorm.io/datatypes"
)

type PassType string

const (
	PassOutbound   PassType = "Outbound"
	PassInbound    PassType = "Inbound"
	PassReturnable PassType = "Returnable"
)

type PassStatus string

const (
	PassOpen     PassStatus = "Open"
	PassReturned PassStatus = "Returned"
	PassClosed   PassStatus = "Closed"
)

type PassItem struct {
	AssetID      *uint  `json:"asset_id,omitempty"`
	Description  string `json:"description"`
	SerialNumber string `json:"serial_number,omitempty"`
	Quantity     int    `json:"quantity"`
}

// Pass is a gate pass for equipment moving in or out of a store.
type Pass struct {
	ID             uint                           `gorm:"primaryKey" json:"id"`
	PassNumber     string                         `gorm:"size:40;uniqueIndex" json:"pass_number"`
	StoreID        *uint                          `gorm:"index" json:"store_id"`
	Type           PassType                       `gorm:"size:20;not null" json:"type"`
	IssuedTo       string                         `gorm:"size:150;not null" json:"issued_to"`
	IssuedToPhone  string                         `gorm:"size:50" json:"issued_to_phone"`
	Purpose        string                         `gorm:"size:500" json:"purpose"`
	Items          datatypes.JSONType[[]PassItem] `json:"items"`
	Status         PassStatus                     `gorm:"size:20;not null;index" json:"status"`
	ExpectedReturn *time.Time                     `json:"expected_return"`
	ClosedAt       *time.Time                     `json:"closed_at"`
	IssuedByID     *uint                          `json:"issued_by_id"`
	CreatedAt      time.Time                      `json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

type PermitStatus string

const (
	PermitPending  PermitStatus = "Pending"
	PermitApproved PermitStatus = "Approved"
	PermitRejected PermitStatus = "Rejected"
	PermitClosed   PermitStatus = "Closed"
)

// Permit is a work permit for on-site jobs.
type Permit struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	PermitNumber string       `gorm:"size:40;uniqueIndex" json:"permit_number"`
	StoreID      *uint        `gorm:"index" json:"store_id"`
	Title        string       `gorm:"size:150;not null" json:"title"`
	Requester    string       `gorm:"size:150;not null" json:"requester"`
	WorkLocation string       `gorm:"size:150" json:"work_location"`
	Description  string       `gorm:"size:500" json:"description"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Status       PermitStatus `gorm:"size:20;not null;index" json:"status"`
	ApprovedByID *uint        `json:"approved_by_id"`
	DecisionNote string       `gorm:"size:255" json:"decision_note"`
	CreatedByID  *uint        `json:"created_by_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Vendor struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StoreID       *uint     `gorm:"index" json:"store_id"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Email         string    `gorm:"size:150" json:"email"`
	Phone         string    `gorm:"size:50" json:"phone"`
	Address       string    `gorm:"size:255" json:"address"`
	Notes         string    `gorm:"size:500" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PurchaseOrderStatus string

const (
	PODraft     PurchaseOrderStatus = "Draft"
	POOrdered   PurchaseOrderStatus = "Ordered"
	POReceived  PurchaseOrderStatus = "Received"
	POCancelled PurchaseOrderStatus = "Cancelled"
)

// CanTransition reports whether a purchase order may move from s to next.
func (s PurchaseOrderStatus) CanTransition(next PurchaseOrderStatus) bool {
	switch s {
	case PODraft:
		return next == POOrdered || next == POCancelled
	case POOrdered:
		return next == POReceived || next == POCancelled
	}
	return false
}

type PurchaseOrder struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	PONumber     string              `gorm:"size:40;uniqueIndex" json:"po_number"`
	StoreID      *uint               `gorm:"index" json:"store_id"`
	VendorID     *uint               `gorm:"index" json:"vendor_id"`
	Vendor       *Vendor             `json:"vendor,omitempty"`
	Status       PurchaseOrderStatus `gorm:"size:20;not null;index" json:"status"`
	OrderDate    time.Time           `json:"order_date"`
	ExpectedDate *time.Time          `json:"expected_date"`
	ReceivedAt   *time.Time          `json:"received_at"`
	Notes        string              `gorm:"size:500" json:"notes"`
	Total        decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"total"`
	CreatedByID  *uint               `json:"created_by_id"`
	Items        []PurchaseOrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint            `gorm:"index;not null" json:"purchase_order_id"`
	Description     string          `gorm:"size:255;not null" json:"description"`
	ModelNumber     string          `gorm:"size:100" json:"model_number"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
}

// Recalculate sets every line total and the order total.
func (po *PurchaseOrder) Recalculate() {
	total := decimal.Zero
	for i := range po.Items {
		it := &po.Items[i]
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(it.LineTotal)
	}
	po.Total = total
}

package procurement

import (
	"errors"
	"testing"

	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestBuildItems(t *testing.T) {
	tests := []struct {
		name    string
		in      []OrderItemRequest
		wantErr bool
	}{
		{"empty", nil, true},
		{"no description", []OrderItemRequest{{Quantity: 1}}, true},
		{"zero quantity", []OrderItemRequest{{Description: "Cable", Quantity: 0}}, true},
		{"negative price", []OrderItemRequest{{Description: "Cable", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}, true},
		{"ok", []OrderItemRequest{{Description: " Cable ", Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := buildItems(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errInvalidItem) {
					t.Fatalf("want errInvalidItem, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if items[0].Description != "Cable" || items[0].Quantity != 3 {
				t.Errorf("unexpected item %+v", items[0])
			}
		})
	}
}

func TestVendorNameTakenPerStore(t *testing.T) {
	db := database.NewTestDB(t)
	s1 := models.Store{Name: "S1", IsMainStore: true}
	s2 := models.Store{Name: "S2", IsMainStore: true}
	db.Create(&s1)
	db.Create(&s2)
	v := models.Vendor{Name: "Acme", StoreID: &s1.ID}
	if err := db.Create(&v).Error; err != nil {
		t.Fatal(err)
	}

	taken, err := vendorNameTaken(db, &s1.ID, "ACME", 0)
	if err != nil || !taken {
		t.Errorf("same store, other case: taken=%v err=%v", taken, err)
	}
	if taken, _ := vendorNameTaken(db, &s1.ID, "acme", v.ID); taken {
		t.Error("vendor should not clash with itself")
	}
	if taken, _ := vendorNameTaken(db, &s2.ID, "Acme", 0); taken {
		t.Error("name should be free in another store")
	}
	if taken, _ := vendorNameTaken(db, nil, "Acme", 0); taken {
		t.Error("name should be free without a store")
	}
}

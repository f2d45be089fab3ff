package passes

import (
	"testing"
	"time"

	"asset-tracker-backend/internal/models"
)

func TestCleanItems(t *testing.T) {
	if _, err := cleanItems(nil); err == nil {
		t.Error("empty item list should fail")
	}
	if _, err := cleanItems([]models.PassItem{{Description: "  "}}); err == nil {
		t.Error("blank item should fail")
	}
	items, err := cleanItems([]models.PassItem{{SerialNumber: " SN1 "}, {Description: "Ladder", Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].SerialNumber != "SN1" || items[0].Quantity != 1 || items[1].Quantity != 2 {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestClosedStatus(t *testing.T) {
	if got := closedStatus(models.PassReturnable); got != models.PassReturned {
		t.Errorf("returnable closes as %s", got)
	}
	if got := closedStatus(models.PassOutbound); got != models.PassClosed {
		t.Errorf("outbound closes as %s", got)
	}
}

func TestValidatePermit(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		req  PermitRequest
		ok   bool
	}{
		{"ok", PermitRequest{Title: "Roof work", Requester: "Acme", StartDate: start, EndDate: start.Add(4 * time.Hour)}, true},
		{"no title", PermitRequest{Requester: "Acme", StartDate: start, EndDate: start}, false},
		{"no dates", PermitRequest{Title: "x", Requester: "Acme"}, false},
		{"reversed", PermitRequest{Title: "x", Requester: "Acme", StartDate: start, EndDate: start.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		if err := validatePermit(&tt.req); (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}
}

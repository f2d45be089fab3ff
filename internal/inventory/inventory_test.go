package inventory

import (
	"reflect"
	"testing"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/importer"
	"asset-tracker-backend/internal/models"
)

func TestReturnedStatus(t *testing.T) {
	tests := map[string]string{
		"":                  assetstate.StatusUsed,
		"Good":              assetstate.StatusUsed,
		"faulty power unit": assetstate.StatusFaulty,
		"needs repair":      assetstate.StatusUnderRepair,
	}
	for cond, want := range tests {
		if got := returnedStatus(cond); got != want {
			t.Errorf("returnedStatus(%q) = %q, want %q", cond, got, want)
		}
	}
}

func TestAssetRequestApply(t *testing.T) {
	name, same, empty := "Switch 24p", "SW-24", ""
	a := models.Asset{Name: "Switch", ModelNumber: "SW-24", Location: "Rack 1"}
	req := AssetRequest{Name: &name, ModelNumber: &same, Location: &empty}

	changed := req.apply(&a)
	if !reflect.DeepEqual(changed, []string{"name", "location"}) {
		t.Errorf("changed = %v", changed)
	}
	if a.Name != name || a.Location != "" || a.ModelNumber != "SW-24" {
		t.Errorf("asset = %+v", a)
	}
}

func TestSerialTakenPerStore(t *testing.T) {
	db := database.NewTestDB(t)
	s1 := models.Store{Name: "S1", IsMainStore: true}
	s2 := models.Store{Name: "S2", IsMainStore: true}
	db.Create(&s1)
	db.Create(&s2)
	a := models.Asset{Name: "cam", SerialNumber: "ABC-1", StoreID: &s1.ID, Status: assetstate.StatusNew}
	db.Create(&a)

	if taken, err := serialTaken(db, &s1.ID, " abc-1 ", 0); err != nil || !taken {
		t.Errorf("same store: taken=%v err=%v", taken, err)
	}
	if taken, _ := serialTaken(db, &s1.ID, "ABC-1", a.ID); taken {
		t.Error("asset clashes with itself")
	}
	if taken, _ := serialTaken(db, &s2.ID, "ABC-1", 0); taken {
		t.Error("serial should be free in another store")
	}
	if taken, _ := serialTaken(db, &s1.ID, "", 0); taken {
		t.Error("blank serials never clash")
	}

	index, err := existingSerials(db, []importer.Row{{SerialNumber: "abc-1"}, {SerialNumber: "zzz"}})
	if err != nil {
		t.Fatal(err)
	}
	if !index[s1.ID]["abc-1"] || index[s1.ID]["zzz"] || len(index) != 1 {
		t.Errorf("index = %v", index)
	}
}

func TestAssetFromRow(t *testing.T) {
	store := uint(4)
	a := assetFromRow(importer.Row{Name: "Cam", SerialNumber: "S1", Vendor: "Acme", Source: "PO"}, &store, 9)
	if a.VendorName != "Acme" || a.Source != "PO" || *a.StoreID != 4 || *a.CreatedByID != 9 {
		t.Errorf("asset = %+v", a)
	}
}

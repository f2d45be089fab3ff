package server

import (
	"net/http"
	"testing"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/models"
)

type assetResult struct {
	Status         string `json:"status"`
	State          string `json:"state"`
	Condition      string `json:"condition"`
	AssignedToID   *uint  `json:"assigned_to_id"`
	ReturnPending  bool   `json:"return_pending"`
	DisposalReason string `json:"disposal_reason"`
}

func (f *fixture) assignedAsset(name, serial string, to models.User) models.Asset {
	f.t.Helper()
	a := models.Asset{Name: name, SerialNumber: serial, StoreID: &f.north.ID,
		Status: assetstate.StatusInUse, AssignedToID: &to.ID}
	f.mustCreate(&a)
	return a
}

// trail returns the history actions and the activity log row count of an asset.
func (f *fixture) trail(assetID uint) ([]string, int64) {
	f.t.Helper()
	var history []models.AssetHistory
	if err := f.db.Where("asset_id = ?", assetID).Order("id").Find(&history).Error; err != nil {
		f.t.Fatal(err)
	}
	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	var logs int64
	f.db.Model(&models.ActivityLog{}).Where("entity_type = ? AND entity_id = ?", "asset", assetID).Count(&logs)
	return actions, logs
}

func (f *fixture) expectTrail(assetID uint, want ...string) {
	f.t.Helper()
	got, logs := f.trail(assetID)
	if len(got) != len(want) {
		f.t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			f.t.Errorf("history[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if logs != int64(len(want)) {
		f.t.Errorf("activity log rows = %d, want %d", logs, len(want))
	}
}

func TestUnassign(t *testing.T) {
	f := newFixture(t)
	a := f.assignedAsset("Laptop", "SN-U1", f.tech)

	var got assetResult
	if code := f.json(http.MethodPost, "/api/assets/unassign", &f.admin,
		map[string]any{"asset_id": a.ID, "ticket_number": "T-9"}, &got); code != http.StatusOK {
		t.Fatalf("unassign = %d", code)
	}
	if got.AssignedToID != nil || got.Status != assetstate.StatusUsed || got.State != string(assetstate.StateUsed) {
		t.Errorf("after unassign: %+v", got)
	}
	f.expectTrail(a.ID, models.ActionUnassignedAdmin)

	if code := f.json(http.MethodPost, "/api/assets/unassign", &f.admin,
		map[string]any{"asset_id": a.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("unassigning twice = %d", code)
	}
	if code := f.json(http.MethodPost, "/api/assets/unassign", &f.tech,
		map[string]any{"asset_id": a.ID}, nil); code != http.StatusForbidden {
		t.Errorf("technician unassign = %d", code)
	}
	f.expectTrail(a.ID, models.ActionUnassignedAdmin)
}

func TestCollectOnlyInStoreAssets(t *testing.T) {
	f := newFixture(t)
	a := f.asset("Drill", "SN-C1", &f.north.ID)

	var got assetResult
	if code := f.json(http.MethodPost, "/api/assets/collect", &f.tech,
		map[string]any{"assetId": a.ID}, &got); code != http.StatusOK {
		t.Fatalf("collect = %d", code)
	}
	if got.AssignedToID == nil || *got.AssignedToID != f.tech.ID || got.Status != assetstate.StatusInUse {
		t.Errorf("after collect: %+v", got)
	}
	f.expectTrail(a.ID, models.ActionCollected)

	other := f.user("tina", models.RoleTechnician, &f.north.ID)
	if code := f.json(http.MethodPost, "/api/assets/collect", &other,
		map[string]any{"assetId": a.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("collecting an assigned asset = %d", code)
	}

	faulty := models.Asset{Name: "Saw", SerialNumber: "SN-C2", StoreID: &f.north.ID, Status: assetstate.StatusFaulty}
	f.mustCreate(&faulty)
	if code := f.json(http.MethodPost, "/api/assets/collect", &f.tech,
		map[string]any{"assetId": faulty.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("collecting a faulty asset = %d", code)
	}
	f.expectTrail(faulty.ID)
	f.expectTrail(a.ID, models.ActionCollected)
}

func TestReturnRequestAndApprove(t *testing.T) {
	f := newFixture(t)
	a := f.assignedAsset("Phone", "SN-R1", f.tech)
	other := f.user("tina", models.RoleTechnician, &f.north.ID)

	body := map[string]any{"asset_id": a.ID, "condition": "Faulty screen", "notes": "dropped"}
	if code := f.json(http.MethodPost, "/api/assets/return", &other, body, nil); code != http.StatusForbidden {
		t.Errorf("returning someone else's asset = %d", code)
	}

	var got assetResult
	if code := f.json(http.MethodPost, "/api/assets/return", &f.tech, body, &got); code != http.StatusOK {
		t.Fatalf("return = %d", code)
	}
	if !got.ReturnPending {
		t.Errorf("return should be pending: %+v", got)
	}
	if code := f.json(http.MethodPost, "/api/assets/return", &f.tech, body, nil); code != http.StatusBadRequest {
		t.Errorf("second return request = %d", code)
	}
	if code := f.json(http.MethodPost, "/api/assets/return-approve", &f.tech,
		map[string]any{"asset_id": a.ID}, nil); code != http.StatusForbidden {
		t.Errorf("technician approving = %d", code)
	}

	got = assetResult{}
	if code := f.json(http.MethodPost, "/api/assets/return-approve", &f.admin,
		map[string]any{"asset_id": a.ID, "notes": "to workshop"}, &got); code != http.StatusOK {
		t.Fatalf("approve = %d", code)
	}
	if got.ReturnPending || got.AssignedToID != nil {
		t.Errorf("approved return still assigned: %+v", got)
	}
	if got.Status != assetstate.StatusFaulty || got.State != string(assetstate.StateFaulty) || got.Condition != "Faulty screen" {
		t.Errorf("status should follow the reported condition: %+v", got)
	}
	f.expectTrail(a.ID, models.ActionReturnRequested, models.ActionReturnApproved)

	if code := f.json(http.MethodPost, "/api/assets/return-approve", &f.admin,
		map[string]any{"asset_id": a.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("approving with nothing pending = %d", code)
	}
}

func TestReturnReject(t *testing.T) {
	f := newFixture(t)
	a := f.assignedAsset("Tablet", "SN-R2", f.tech)

	if code := f.json(http.MethodPost, "/api/assets/return", &f.tech,
		map[string]any{"asset_id": a.ID, "condition": "Good"}, nil); code != http.StatusOK {
		t.Fatalf("return = %d", code)
	}
	var got assetResult
	if code := f.json(http.MethodPost, "/api/assets/return-reject", &f.admin,
		map[string]any{"asset_id": a.ID, "notes": "still needed on site"}, &got); code != http.StatusOK {
		t.Fatalf("reject = %d", code)
	}
	if got.ReturnPending || got.AssignedToID == nil || *got.AssignedToID != f.tech.ID || got.Status != assetstate.StatusInUse {
		t.Errorf("rejected return should leave the assignment: %+v", got)
	}
	f.expectTrail(a.ID, models.ActionReturnRequested, models.ActionReturnRejected)
}

func TestDispose(t *testing.T) {
	f := newFixture(t)
	a := f.assignedAsset("Printer", "SN-D1", f.tech)

	if code := f.json(http.MethodPost, "/api/assets/dispose", &f.admin,
		map[string]any{"asset_id": a.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("dispose without reason = %d", code)
	}

	var got assetResult
	if code := f.json(http.MethodPost, "/api/assets/dispose", &f.admin,
		map[string]any{"asset_id": a.ID, "reason": "water damage"}, &got); code != http.StatusOK {
		t.Fatalf("dispose = %d", code)
	}
	if got.Status != assetstate.StatusDisposed || got.State != string(assetstate.StateDisposed) ||
		got.AssignedToID != nil || got.DisposalReason != "water damage" {
		t.Errorf("after dispose: %+v", got)
	}

	if code := f.json(http.MethodPost, "/api/assets/dispose", &f.admin,
		map[string]any{"asset_id": a.ID, "reason": "again"}, nil); code != http.StatusBadRequest {
		t.Errorf("disposing twice = %d", code)
	}
	if code := f.json(http.MethodPost, "/api/assets/assign", &f.admin,
		map[string]any{"asset_id": a.ID, "technician_id": f.tech.ID}, nil); code != http.StatusBadRequest {
		t.Errorf("assigning a disposed asset = %d", code)
	}
	f.expectTrail(a.ID, models.ActionDisposed)
}

func TestBulkUpdateStaysInScope(t *testing.T) {
	f := newFixture(t)
	n1 := f.asset("n1", "SN-B1", &f.north.ID)
	n2 := f.asset("n2", "SN-B2", &f.north.ID)
	s1 := f.asset("s1", "SN-B3", &f.south.ID)
	ids := []uint{n1.ID, n2.ID, s1.ID}

	if code := f.json(http.MethodPost, "/api/assets/bulk-update", &f.admin,
		map[string]any{"ids": ids, "store_id": f.south.ID}, nil); code != http.StatusForbidden {
		t.Fatalf("moving assets to a foreign store = %d", code)
	}
	f.expectTrail(n1.ID)

	var resp struct {
		Updated int `json:"updated"`
	}
	if code := f.json(http.MethodPost, "/api/assets/bulk-update", &f.admin,
		map[string]any{"ids": ids, "store_id": f.northAnnex.ID, "condition": "Checked"}, &resp); code != http.StatusOK {
		t.Fatalf("bulk update = %d", code)
	}
	if resp.Updated != 2 {
		t.Errorf("updated %d, want 2", resp.Updated)
	}

	var moved []models.Asset
	f.db.Where("store_id = ?", f.northAnnex.ID).Find(&moved)
	if len(moved) != 2 {
		t.Errorf("assets in annex = %d", len(moved))
	}
	var south models.Asset
	f.db.First(&south, s1.ID)
	if south.StoreID == nil || *south.StoreID != f.south.ID || south.Condition != "" {
		t.Errorf("out of scope asset changed: %+v", south)
	}

	history, _ := f.trail(n2.ID)
	if len(history) != 1 || history[0] != models.ActionBulkUpdated {
		t.Errorf("n2 history = %v", history)
	}
	if history, _ := f.trail(s1.ID); len(history) != 0 {
		t.Errorf("s1 history = %v", history)
	}
}

func TestBulkDeleteIsScoped(t *testing.T) {
	f := newFixture(t)
	n1 := f.asset("n1", "SN-X1", &f.north.ID)
	a1 := f.asset("a1", "SN-X2", &f.northAnnex.ID)
	s1 := f.asset("s1", "SN-X3", &f.south.ID)

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if code := f.json(http.MethodPost, "/api/assets/bulk-delete", &f.admin,
		map[string]any{"ids": []uint{n1.ID, a1.ID, s1.ID}}, &resp); code != http.StatusOK {
		t.Fatalf("bulk delete = %d", code)
	}
	if resp.Deleted != 2 {
		t.Errorf("deleted %d, want 2", resp.Deleted)
	}
	var left []models.Asset
	f.db.Find(&left)
	if len(left) != 1 || left[0].ID != s1.ID {
		t.Errorf("assets left %+v", left)
	}

	if code := f.json(http.MethodPost, "/api/assets/bulk-delete", &f.tech,
		map[string]any{"ids": []uint{s1.ID}}, nil); code != http.StatusForbidden {
		t.Errorf("technician bulk delete = %d", code)
	}
}

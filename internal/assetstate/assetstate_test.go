package assetstate

import "testing"

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		condition string
		assigned  bool
		want      State
		label     string
	}{
		{"faulty condition beats in use", "In Use", "Faulty", true, StateFaulty, "Faulty"},
		{"faulty condition is case-insensitive", "New", "screen FAULTY after drop", false, StateFaulty, "Faulty"},
		{"faulty status", "Faulty", "", false, StateFaulty, "Faulty"},
		{"faulty before repair", "Under Repair", "faulty", false, StateFaulty, "Faulty"},
		{"repair condition", "Used", "Sent for Repair", true, StateUnderRepair, "Under Repair"},
		{"repair status", "Under Repair", "", false, StateUnderRepair, "Under Repair"},
		{"disposed condition", "Used", "Disposed", false, StateDisposed, "Disposed"},
		{"disposed status beats assignment", "Disposed", "", true, StateDisposed, "Disposed"},
		{"scrap condition", "New", "scrap metal", false, StateScrapped, "Scrapped"},
		{"scrapped status", "Scrapped", "", false, StateScrapped, "Scrapped"},
		{"testing before assignment", "Testing", "", true, StateTesting, "Testing"},
		{"assigned", "New", "good", true, StateInUse, "In Use"},
		{"new in store", "New", "", false, StateNew, "In Store (New)"},
		{"used in store", "Used", "ok", false, StateUsed, "In Store (Used)"},
		{"fallback keeps raw status", "Missing", "", false, StateOther, "Missing"},
		{"empty status", "", "", false, StateOther, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.status, tt.condition, tt.assigned)
			if got.State != tt.want {
				t.Errorf("state = %q, want %q", got.State, tt.want)
			}
			if got.Label != tt.label {
				t.Errorf("label = %q, want %q", got.Label, tt.label)
			}
			if got.ColorKey == "" {
				t.Error("color key is empty")
			}
		})
	}
}

func TestResolveStatusIsCaseSensitive(t *testing.T) {
	// only condition is matched case-insensitively
	got := Resolve("faulty", "", false)
	if got.State != StateOther {
		t.Errorf("lowercase status should fall through, got %q", got.State)
	}
}

func TestParse(t *testing.T) {
	for _, s := range All() {
		got, ok := Parse(string(s))
		if !ok || got != s {
			t.Errorf("Parse(%q) = %q, %v", s, got, ok)
		}
	}
	if got, ok := Parse("In Store (Used)"); !ok || got != StateUsed {
		t.Errorf("label not parsed: %q %v", got, ok)
	}
	if _, ok := Parse("Missing"); ok {
		t.Error("raw legacy status should not parse")
	}
}

func TestLabelMatchesResolve(t *testing.T) {
	cases := []struct {
		status, condition string
		assigned          bool
	}{
		{StatusNew, "", false},
		{StatusUsed, "", false},
		{StatusNew, "", true},
		{StatusFaulty, "", false},
		{StatusUnderRepair, "", false},
		{StatusDisposed, "", false},
		{StatusScrapped, "", false},
		{StatusTesting, "", false},
	}
	for _, c := range cases {
		d := Resolve(c.status, c.condition, c.assigned)
		if got := d.State.Label(); got != d.Label {
			t.Errorf("%s.Label() = %q, Resolve label %q", d.State, got, d.Label)
		}
	}
}

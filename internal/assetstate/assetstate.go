// Package assetstate derives the single display status of an asset from its
// legacy status, free-text condition and assignment.
package assetstate

import "strings"

// State is the canonical asset state persisted next to the legacy fields.
type State string

const (
	StateNew         State = "new"
	StateUsed        State = "used"
	StateInUse       State = "in_use"
	StateFaulty      State = "faulty"
	StateUnderRepair State = "under_repair"
	StateDisposed    State = "disposed"
	StateScrapped    State = "scrapped"
	StateTesting     State = "testing"
	StateOther       State = "other"
)

// Raw status values written by this service.
const (
	StatusNew         = "New"
	StatusUsed        = "Used"
	StatusFaulty      = "Faulty"
	StatusDisposed    = "Disposed"
	StatusUnderRepair = "Under Repair"
	StatusScrapped    = "Scrapped"
	StatusTesting     = "Testing"
	StatusInUse       = "In Use"
	StatusInStore     = "In Store"
)

// Display is what the UI shows for an asset.
type Display struct {
	Label    string `json:"label"`
	ColorKey string `json:"color_key"`
	State    State  `json:"state"`
}

// Resolve applies the status priority rules. The first matching rule wins:
// faulty, under repair, disposed, scrapped, testing, assigned, new, used,
// then the raw status.
func Resolve(status, condition string, assigned bool) Display {
	cond := strings.ToLower(condition)

	switch {
	case strings.Contains(cond, "faulty") || status == StatusFaulty:
		return Display{Label: "Faulty", ColorKey: "danger", State: StateFaulty}
	case strings.Contains(cond, "repair") || status == StatusUnderRepair:
		return Display{Label: "Under Repair", ColorKey: "warning", State: StateUnderRepair}
	case strings.Contains(cond, "disposed") || status == StatusDisposed:
		return Display{Label: "Disposed", ColorKey: "dark", State: StateDisposed}
	case strings.Contains(cond, "scrap") || status == StatusScrapped:
		return Display{Label: "Scrapped", ColorKey: "dark", State: StateScrapped}
	case status == StatusTesting:
		return Display{Label: "Testing", ColorKey: "info", State: StateTesting}
	case assigned:
		return Display{Label: "In Use", ColorKey: "primary", State: StateInUse}
	case status == StatusNew:
		return Display{Label: "In Store (New)", ColorKey: "success", State: StateNew}
	case status == StatusUsed:
		return Display{Label: "In Store (Used)", ColorKey: "secondary", State: StateUsed}
	}

	label := status
	if label == "" {
		label = "Unknown"
	}
	return Display{Label: label, ColorKey: "default", State: StateOther}
}

// Parse maps a filter value to a canonical state. Both the state keys and
// the display labels are accepted.
func Parse(s string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "in store (new)":
		return StateNew, true
	case "used", "in store (used)":
		return StateUsed, true
	case "in_use", "in use":
		return StateInUse, true
	case "faulty":
		return StateFaulty, true
	case "under_repair", "under repair":
		return StateUnderRepair, true
	case "disposed":
		return StateDisposed, true
	case "scrapped":
		return StateScrapped, true
	case "testing":
		return StateTesting, true
	case "other":
		return StateOther, true
	}
	return "", false
}

// InStore reports whether an asset in state s is available for checkout.
func (s State) InStore() bool {
	return s == StateNew || s == StateUsed
}

// Retired reports whether s is a terminal state.
func (s State) Retired() bool {
	return s == StateDisposed || s == StateScrapped
}

// All lists the states in display order.
func All() []State {
	return []State{
		StateNew, StateUsed, StateInUse, StateTesting,
		StateFaulty, StateUnderRepair, StateDisposed, StateScrapped, StateOther,
	}
}

// Label is the display label Resolve uses for s.
func (s State) Label() string {
	switch s {
	case StateNew:
		return "In Store (New)"
	case StateUsed:
		return "In Store (Used)"
	case StateInUse:
		return "In Use"
	case StateFaulty:
		return "Faulty"
	case StateUnderRepair:
		return "Under Repair"
	case StateDisposed:
		return "Disposed"
	case StateScrapped:
		return "Scrapped"
	case StateTesting:
		return "Testing"
	}
	return "Other"
}

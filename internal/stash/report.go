package stash

import "time"

// Report is the outcome of one redistribution run.
type Report struct {
	RunID      string      `json:"runId"`
	Unit       EntityID    `json:"unit"`
	Source     InventoryID `json:"source,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`

	// NoInventory is set when the unit had nothing to redistribute from.
	NoInventory bool `json:"noInventory,omitempty"`
	// Aborted is set when an unexpected error ended the run early. Legs
	// already listed were committed.
	Aborted bool `json:"aborted,omitempty"`

	IndexedItems int          `json:"indexedItems"`
	Overflow     *Destination `json:"overflow,omitempty"`
	Legs         []Leg        `json:"legs"`
}

// Totals sums leg amounts by outcome.
type Totals struct {
	Removed  int `json:"removed"`
	Added    int `json:"added"`
	Restored int `json:"restored"`
	Lost     int `json:"lost"`
}

// Totals sums the amounts of all legs.
func (r Report) Totals() Totals {
	var t Totals
	for _, l := range r.Legs {
		t.Removed += l.Removed()
		t.Added += l.Added()
		t.Restored += l.Restored()
		t.Lost += l.Lost()
	}
	return t
}

// Count returns the number of legs that ended in state.
func (r Report) Count(state LegState) int {
	n := 0
	for _, l := range r.Legs {
		if l.State == state {
			n++
		}
	}
	return n
}

// HasLoss reports whether any leg lost items.
func (r Report) HasLoss() bool { return r.Count(LegLost) > 0 }

// Failures returns the legs that did not end Added.
func (r Report) Failures() []Leg {
	var out []Leg
	for _, l := range r.Legs {
		if l.State != LegAdded {
			out = append(out, l)
		}
	}
	return out
}

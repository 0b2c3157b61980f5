package stash

import (
	"errors"
	"fmt"
	"log"

	"github.com/gravitas-games/logistics/internal/inventory"
)

var (
	// ErrNoInventory marks a unit without a personal inventory. Runs treat it
	// as nothing to do.
	ErrNoInventory = errors.New("stash: unit has no inventory")
	// ErrRemovalFailed marks a leg whose source refused the removal.
	ErrRemovalFailed = errors.New("stash: removal from source failed")
	// ErrRecoveredFailure marks a leg whose destination refused the items
	// and whose source took them back.
	ErrRecoveredFailure = errors.New("stash: destination refused items, restored to source")
	// ErrLostItems marks a leg whose items are neither in the source nor in
	// the destination.
	ErrLostItems = errors.New("stash: items lost in transfer")
	// ErrUnexpected wraps collaborator failures that abort a run.
	ErrUnexpected = errors.New("stash: unexpected error")
)

// LegState is the progress of a single transfer leg.
type LegState int

const (
	LegPending LegState = iota
	LegRemoved
	// LegAdded is the success state: the amount moved.
	LegAdded
	// LegRemovalFailed: nothing was mutated.
	LegRemovalFailed
	// LegRolledBack: the amount left and came back to the source.
	LegRolledBack
	// LegLost: the amount left the source and arrived nowhere.
	LegLost
)

// String returns a human-readable representation of the leg state.
func (s LegState) String() string {
	switch s {
	case LegPending:
		return "Pending"
	case LegRemoved:
		return "Removed"
	case LegAdded:
		return "Added"
	case LegRemovalFailed:
		return "RemovalFailed"
	case LegRolledBack:
		return "RolledBack"
	case LegLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s LegState) Terminal() bool {
	return s == LegAdded || s == LegRemovalFailed || s == LegRolledBack || s == LegLost
}

// Err maps a terminal failure state to its sentinel error.
func (s LegState) Err() error {
	switch s {
	case LegRemovalFailed:
		return ErrRemovalFailed
	case LegRolledBack:
		return ErrRecoveredFailure
	case LegLost:
		return ErrLostItems
	default:
		return nil
	}
}

// MarshalText encodes the state by name.
func (s LegState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *LegState) UnmarshalText(b []byte) error {
	for st := LegPending; st <= LegLost; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown leg state %q", b)
}

// Leg is one attempt to move an item type from the unit to one destination.
type Leg struct {
	Item        inventory.ItemID `json:"item"`
	Source      InventoryID      `json:"source"`
	Destination Destination      `json:"destination"`
	Overflow    bool             `json:"overflow,omitempty"`
	Amount      int              `json:"amount"`
	State       LegState         `json:"state"`
}

// Removed is the amount taken from the source.
func (l Leg) Removed() int {
	if l.State == LegPending || l.State == LegRemovalFailed {
		return 0
	}
	return l.Amount
}

// Added is the amount credited to the destination.
func (l Leg) Added() int {
	if l.State == LegAdded {
		return l.Amount
	}
	return 0
}

// Restored is the amount credited back to the source.
func (l Leg) Restored() int {
	if l.State == LegRolledBack {
		return l.Amount
	}
	return 0
}

// Lost is the amount that vanished.
func (l Leg) Lost() int {
	if l.State == LegLost {
		return l.Amount
	}
	return 0
}

// Err returns the sentinel error of a failed leg, or nil.
func (l Leg) Err() error { return l.State.Err() }

// TransferItems moves amount of item from src to dst. Each step is tried
// exactly once: if the destination refuses, the amount is added back to the
// source; if that fails too the leg ends Lost.
func TransferItems(m Mover, src, dst InventoryID, item inventory.ItemID, amount int) LegState {
	if !m.TryRemove(src, item, amount) {
		log.Printf("Failed to remove %s x%d from %s", item, amount, src)
		return LegRemovalFailed
	}

	if m.TryAdd(dst, item, amount) {
		log.Printf("Moved %d of %s from %s to %s", amount, item, src, dst)
		return LegAdded
	}

	log.Printf("Failed to add %s x%d to %s, reverting...", item, amount, dst)
	if m.TryAdd(src, item, amount) {
		log.Printf("Restored %s x%d to %s", item, amount, src)
		return LegRolledBack
	}
	log.Printf("ERROR: unable to return %s x%d to %s, items lost", item, amount, src)
	return LegLost
}

package mission

import (
	"time"

	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
)

// ID uniquely identifies a mission.
type ID string

// LootYield is one possible reward of a mission.
type LootYield struct {
	Item        inventory.ItemID `json:"item" yaml:"item"`
	Quantity    int              `json:"quantity" yaml:"quantity"`
	Probability float64          `json:"probability" yaml:"probability"` // 0.0-1.0
}

// State is the lifecycle state of a mission.
type State int

const (
	// StateRunning means servants are away.
	StateRunning State = iota
	// StateComplete means the mission returned and loot was handed out.
	StateComplete
	// StateFailed means the mission returned but loot could not be placed.
	StateFailed
	// StateCancelled means the mission was called off.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Mission is a group of servants sent out for a fixed duration.
//
// Owner may be empty for missions started by the world itself. Entries of
// Servants may be empty when a servant slot was not filled.
type Mission struct {
	ID        ID               `json:"id"`
	Owner     stash.EntityID   `json:"owner,omitempty"`
	Servants  []stash.EntityID `json:"servants"`
	State     State            `json:"state"`
	Progress  float64          `json:"progress"` // 0.0-1.0
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Loot      []LootYield      `json:"loot,omitempty"`
	Awarded   []LootYield      `json:"awarded,omitempty"`
}

// CalculateProgress returns the progress (0.0 to 1.0) at now.
func (m *Mission) CalculateProgress(now time.Time) float64 {
	if m.State != StateRunning {
		if m.State == StateComplete {
			return 1.0
		}
		return 0.0
	}
	if now.Before(m.StartTime) {
		return 0.0
	}
	if !now.Before(m.EndTime) {
		return 1.0
	}
	total := m.EndTime.Sub(m.StartTime)
	if total <= 0 {
		return 1.0
	}
	return float64(now.Sub(m.StartTime)) / float64(total)
}

func (m *Mission) clone() Mission {
	out := *m
	out.Servants = append([]stash.EntityID(nil), m.Servants...)
	out.Loot = append([]LootYield(nil), m.Loot...)
	out.Awarded = append([]LootYield(nil), m.Awarded...)
	return out
}

// LootSink places mission rewards into servant inventories.
type LootSink interface {
	PrimaryInventory(entity stash.EntityID) (stash.InventoryID, bool, error)
	Deposit(inv stash.InventoryID, item inventory.ItemID, qty int) error
}

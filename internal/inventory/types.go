package inventory

// Package inventory provides a minimal, item-agnostic slot inventory.
// It only tracks item identifiers, quantities per slot and an optional
// volume budget. Item metadata lives in a Registry.

import "errors"

// ItemID represents an application-defined identifier for an item type.
// The inventory system does not interpret this value beyond equality.
type ItemID string

// Empty is the sentinel item type of an unused slot.
const Empty ItemID = ""

// OwnerID represents an application-defined owner identifier.
type OwnerID string

// RegistryID is a numeric handle suitable for compact storage.
type RegistryID int64

// DefaultStackMax applies to items the registry does not know.
const DefaultStackMax = 100

var (
	// ErrInvalidQty is returned for non-positive quantities.
	ErrInvalidQty = errors.New("inventory: quantity must be positive")
	// ErrEmptyItem is returned when the empty sentinel is used as an item.
	ErrEmptyItem = errors.New("inventory: empty item type")
	// ErrInsufficient is returned when a removal exceeds what is held.
	ErrInsufficient = errors.New("inventory: insufficient quantity")
	// ErrNoSpace is returned when the slots cannot hold an addition.
	ErrNoSpace = errors.New("inventory: no free slot space")
	// ErrVolumeExceeded is returned when an addition would exceed capacity.
	ErrVolumeExceeded = errors.New("inventory: volume exceeded")
)

// Stack is the content of one slot. A slot with Item == Empty is unused
// and always has Qty 0.
type Stack struct {
	Item ItemID `json:"item,omitempty"`
	Qty  int    `json:"qty,omitempty"`
}

// IsEmpty reports whether the stack denotes an unused slot.
func (s Stack) IsEmpty() bool { return s.Item == Empty || s.Qty <= 0 }

// Inventory is a fixed number of ordered slots owned by one entity, with an
// optional volume budget.
type Inventory struct {
	ID    string  `json:"id"`
	Owner OwnerID `json:"owner,omitempty"`

	// Slots are kept in storage order; index 0 is the leftmost slot.
	Slots []Stack `json:"slots"`

	// VolumeCapacity of zero disables volume accounting.
	VolumeCapacity int `json:"volumeCapacity,omitempty"`
	VolumeUsed     int `json:"volumeUsed,omitempty"`

	registry *Registry
}

// StorageStackSnapshot is a slot in storage-optimized format using numeric
// RegistryIDs. Empty slots carry Item 0.
type StorageStackSnapshot struct {
	Item RegistryID `json:"item"`
	Qty  int        `json:"qty,omitempty"`
}

// StorageSnapshot is an inventory in storage-optimized format.
type StorageSnapshot struct {
	ID             string                 `json:"id"`
	Owner          OwnerID                `json:"owner,omitempty"`
	VolumeCapacity int                    `json:"volumeCapacity,omitempty"`
	Slots          []StorageStackSnapshot `json:"slots"`
}

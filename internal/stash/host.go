// Package stash routes the items a servant carries into the stashes of its
// territory once its mission is over.
//
// A run has two steps. BuildIndex scans the allied containers reachable from
// the servant once and records, per item type, which containers already hold
// it, plus at most one overflow container recognised by name. The Engine then
// walks the servant's slots and moves every item type to each matching stash,
// or to the overflow container when nothing matches, one remove-then-add leg
// at a time with a compensating add when the destination refuses.
//
// The engine never touches world state directly: everything goes through the
// Host interface, and it performs no locking of its own. Callers running
// several redistributions concurrently must serialize access to the store.
package stash

import "github.com/gravitas-games/logistics/internal/inventory"

// EntityID is an opaque handle to a host entity (servant, container, ...).
type EntityID string

// InventoryID is an opaque handle to a host inventory.
type InventoryID string

// Inspector is the read side of the host store.
type Inspector interface {
	// AlliedContainers lists the containers inside the unit's territory that
	// belong to an ally of the unit's owner. A unit outside any territory
	// yields an empty list, not an error.
	AlliedContainers(unit EntityID) ([]EntityID, error)
	// Name returns a container's display name.
	Name(container EntityID) (string, error)
	// SubInventories returns the storage inventories attached to a container.
	SubInventories(container EntityID) ([]InventoryID, error)
	// Stacks returns the slots of an inventory in storage order.
	Stacks(inv InventoryID) ([]inventory.Stack, error)
	// PrimaryInventory resolves the inventory an entity carries itself.
	PrimaryInventory(entity EntityID) (InventoryID, bool, error)
	// Quantity returns the current total of item in inv.
	Quantity(inv InventoryID, item inventory.ItemID) (int, error)
}

// Mover is the write side of the host store. Both operations are
// all-or-nothing and report failure without an error value.
type Mover interface {
	TryRemove(inv InventoryID, item inventory.ItemID, amount int) bool
	TryAdd(inv InventoryID, item inventory.ItemID, amount int) bool
}

// Host is everything the engine needs from the world.
type Host interface {
	Inspector
	Mover
}

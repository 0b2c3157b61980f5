package stash

import (
	"fmt"
	"strings"

	"github.com/gravitas-games/logistics/internal/inventory"
)

// DefaultOverflowMarker marks the container that absorbs unmatched items.
const DefaultOverflowMarker = "spoils"

// OverflowPredicate decides from a container's name whether it is the
// overflow container.
type OverflowPredicate func(name string) bool

// NameContains matches names containing marker, ignoring case.
func NameContains(marker string) OverflowPredicate {
	marker = strings.ToLower(marker)
	return func(name string) bool {
		return marker != "" && strings.Contains(strings.ToLower(name), marker)
	}
}

// Destination is one inventory of one container.
type Destination struct {
	Container EntityID    `json:"container"`
	Inventory InventoryID `json:"inventory"`
}

// Index maps item types to the stashes already holding them. It is a
// snapshot of a single moment and is never updated after BuildIndex.
type Index struct {
	entries  map[inventory.ItemID][]Destination
	items    []inventory.ItemID
	overflow *Destination
}

func newIndex() *Index {
	return &Index{entries: make(map[inventory.ItemID][]Destination)}
}

// Destinations returns the stashes for item in scan order.
func (ix *Index) Destinations(item inventory.ItemID) []Destination {
	return ix.entries[item]
}

// Overflow returns the overflow container, if one was found.
func (ix *Index) Overflow() (Destination, bool) {
	if ix.overflow == nil {
		return Destination{}, false
	}
	return *ix.overflow, true
}

// Items returns the indexed item types in first-seen order.
func (ix *Index) Items() []inventory.ItemID {
	out := make([]inventory.ItemID, len(ix.items))
	copy(out, ix.items)
	return out
}

// Len returns the number of indexed item types.
func (ix *Index) Len() int { return len(ix.items) }

func (ix *Index) add(item inventory.ItemID, dst Destination) {
	list, ok := ix.entries[item]
	if !ok {
		ix.items = append(ix.items, item)
	}
	for _, d := range list {
		if d.Container == dst.Container {
			return
		}
	}
	ix.entries[item] = append(list, dst)
}

// BuildIndex scans the containers allied to unit once. The first container
// whose name satisfies isOverflow and has an inventory becomes the overflow
// container and is not indexed; any later match is indexed like an ordinary
// stash. Containers with no attached inventories are skipped.
func BuildIndex(h Inspector, unit EntityID, isOverflow OverflowPredicate) (*Index, error) {
	if isOverflow == nil {
		isOverflow = NameContains(DefaultOverflowMarker)
	}
	containers, err := h.AlliedContainers(unit)
	if err != nil {
		return nil, fmt.Errorf("list containers of %s: %w", unit, err)
	}

	ix := newIndex()
	for _, c := range containers {
		name, err := h.Name(c)
		if err != nil {
			return nil, fmt.Errorf("read name of %s: %w", c, err)
		}
		if ix.overflow == nil && isOverflow(name) {
			inv, ok, err := h.PrimaryInventory(c)
			if err != nil {
				return nil, fmt.Errorf("resolve inventory of %s: %w", c, err)
			}
			if !ok {
				continue
			}
			ix.overflow = &Destination{Container: c, Inventory: inv}
			continue
		}

		subs, err := h.SubInventories(c)
		if err != nil {
			return nil, fmt.Errorf("read attached inventories of %s: %w", c, err)
		}
		for _, sub := range subs {
			stacks, err := h.Stacks(sub)
			if err != nil {
				return nil, fmt.Errorf("read stacks of %s: %w", sub, err)
			}
			for _, st := range stacks {
				if st.IsEmpty() {
					continue
				}
				ix.add(st.Item, Destination{Container: c, Inventory: sub})
			}
		}
	}
	return ix, nil
}

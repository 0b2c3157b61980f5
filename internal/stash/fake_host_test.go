package stash

import (
	"fmt"

	"github.com/gravitas-games/logistics/internal/inventory"
)

// fakeHost is an in-memory Host with failure injection.
type fakeHost struct {
	allied    map[EntityID][]EntityID
	names     map[EntityID]string
	subs      map[EntityID][]InventoryID
	primary   map[EntityID]InventoryID
	inv       map[InventoryID]*inventory.Inventory
	refuseAdd map[InventoryID]bool
	qtyErr    map[InventoryID]error
	listErr   error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		allied:    make(map[EntityID][]EntityID),
		names:     make(map[EntityID]string),
		subs:      make(map[EntityID][]InventoryID),
		primary:   make(map[EntityID]InventoryID),
		inv:       make(map[InventoryID]*inventory.Inventory),
		refuseAdd: make(map[InventoryID]bool),
		qtyErr:    make(map[InventoryID]error),
	}
}

func (h *fakeHost) newInventory(id InventoryID, slots int, stacks ...inventory.Stack) *inventory.Inventory {
	inv := inventory.New(string(id), "", slots)
	for i, st := range stacks {
		if err := inv.Set(i, st); err != nil {
			panic(err)
		}
	}
	h.inv[id] = inv
	return inv
}

// addUnit gives a unit a personal inventory seeded with stacks.
func (h *fakeHost) addUnit(unit EntityID, stacks ...inventory.Stack) *inventory.Inventory {
	id := InventoryID(string(unit) + "/inv")
	h.primary[unit] = id
	return h.newInventory(id, 8, stacks...)
}

// addStash registers a container in range of unit with one attached
// inventory per stacks group.
func (h *fakeHost) addStash(unit, c EntityID, name string, groups ...[]inventory.Stack) []*inventory.Inventory {
	h.allied[unit] = append(h.allied[unit], c)
	h.names[c] = name
	var out []*inventory.Inventory
	for i, g := range groups {
		id := InventoryID(fmt.Sprintf("%s/sub%d", c, i))
		h.subs[c] = append(h.subs[c], id)
		out = append(out, h.newInventory(id, 8, g...))
	}
	return out
}

// addOverflow registers a container whose primary inventory absorbs items.
func (h *fakeHost) addOverflow(unit, c EntityID, name string) *inventory.Inventory {
	h.allied[unit] = append(h.allied[unit], c)
	h.names[c] = name
	id := InventoryID(string(c) + "/main")
	h.primary[c] = id
	return h.newInventory(id, 8)
}

func (h *fakeHost) AlliedContainers(unit EntityID) ([]EntityID, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.allied[unit], nil
}

func (h *fakeHost) Name(c EntityID) (string, error) {
	name, ok := h.names[c]
	if !ok {
		return "", fmt.Errorf("unknown container %s", c)
	}
	return name, nil
}

func (h *fakeHost) SubInventories(c EntityID) ([]InventoryID, error) {
	return h.subs[c], nil
}

func (h *fakeHost) Stacks(id InventoryID) ([]inventory.Stack, error) {
	inv, ok := h.inv[id]
	if !ok {
		return nil, fmt.Errorf("unknown inventory %s", id)
	}
	return inv.Stacks(), nil
}

func (h *fakeHost) PrimaryInventory(e EntityID) (InventoryID, bool, error) {
	id, ok := h.primary[e]
	return id, ok, nil
}

func (h *fakeHost) Quantity(id InventoryID, item inventory.ItemID) (int, error) {
	if err := h.qtyErr[id]; err != nil {
		return 0, err
	}
	inv, ok := h.inv[id]
	if !ok {
		return 0, fmt.Errorf("unknown inventory %s", id)
	}
	return inv.Count(item), nil
}

func (h *fakeHost) TryRemove(id InventoryID, item inventory.ItemID, amount int) bool {
	inv, ok := h.inv[id]
	return ok && inv.Remove(item, amount) == nil
}

func (h *fakeHost) TryAdd(id InventoryID, item inventory.ItemID, amount int) bool {
	if h.refuseAdd[id] {
		return false
	}
	inv, ok := h.inv[id]
	return ok && inv.Add(item, amount) == nil
}

func st(item inventory.ItemID, qty int) inventory.Stack {
	return inventory.Stack{Item: item, Qty: qty}
}

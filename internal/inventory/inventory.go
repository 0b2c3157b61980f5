package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Option configures inventory construction.
type Option func(*Inventory)

// WithRegistry attaches an item registry used to resolve stack limits and
// volumes.
func WithRegistry(reg *Registry) Option {
	return func(inv *Inventory) {
		inv.registry = reg
	}
}

// WithVolume enables volume accounting with the given capacity.
func WithVolume(capacity int) Option {
	return func(inv *Inventory) {
		inv.VolumeCapacity = capacity
	}
}

// New creates an inventory with the given number of empty slots.
func New(id string, owner OwnerID, slots int, opts ...Option) *Inventory {
	if slots < 0 {
		slots = 0
	}
	inv := &Inventory{
		ID:    id,
		Owner: owner,
		Slots: make([]Stack, slots),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// Registry returns the currently attached item registry.
func (inv *Inventory) Registry() *Registry { return inv.registry }

// SetRegistry attaches or replaces the item registry.
func (inv *Inventory) SetRegistry(reg *Registry) { inv.registry = reg }

// Stacks returns a copy of the slots in storage order, empty slots included.
func (inv *Inventory) Stacks() []Stack {
	out := make([]Stack, len(inv.Slots))
	copy(out, inv.Slots)
	return out
}

// Count returns the total quantity of item across all slots.
func (inv *Inventory) Count(item ItemID) int {
	if item == Empty {
		return 0
	}
	total := 0
	for _, st := range inv.Slots {
		if st.Item == item {
			total += st.Qty
		}
	}
	return total
}

// IsEmpty reports whether every slot is unused.
func (inv *Inventory) IsEmpty() bool {
	for _, st := range inv.Slots {
		if !st.IsEmpty() {
			return false
		}
	}
	return true
}

// Set places a stack directly into a slot, replacing its content. It is
// meant for loading and seeding; regular traffic goes through Add/Remove.
func (inv *Inventory) Set(slot int, s Stack) error {
	if slot < 0 || slot >= len(inv.Slots) {
		return errors.New("slot out of range")
	}
	if s.Qty < 0 {
		return ErrInvalidQty
	}
	if s.Item == Empty || s.Qty == 0 {
		s = Stack{}
	}
	if limit := inv.stackMax(s.Item); s.Item != Empty && s.Qty > limit {
		return fmt.Errorf("qty exceeds stackMax: qty=%d stackMax=%d", s.Qty, limit)
	}
	old := inv.Slots[slot]
	delta := inv.volumeOf(s.Item, s.Qty) - inv.volumeOf(old.Item, old.Qty)
	if inv.VolumeCapacity > 0 && inv.VolumeUsed+delta > inv.VolumeCapacity {
		return fmt.Errorf("%w: used=%d req=%d cap=%d", ErrVolumeExceeded, inv.VolumeUsed, delta, inv.VolumeCapacity)
	}
	inv.VolumeUsed += delta
	inv.Slots[slot] = s
	return nil
}

// Remove takes qty of item out of the inventory, draining slots left to
// right. Either the full quantity is removed or nothing changes.
func (inv *Inventory) Remove(item ItemID, qty int) error {
	if item == Empty {
		return ErrEmptyItem
	}
	if qty <= 0 {
		return ErrInvalidQty
	}
	if have := inv.Count(item); have < qty {
		return fmt.Errorf("%w: %s have %d, need %d", ErrInsufficient, item, have, qty)
	}
	remaining := qty
	for i := 0; i < len(inv.Slots) && remaining > 0; i++ {
		st := &inv.Slots[i]
		if st.Item != item {
			continue
		}
		take := min(st.Qty, remaining)
		st.Qty -= take
		remaining -= take
		if st.Qty == 0 {
			*st = Stack{}
		}
	}
	inv.VolumeUsed -= inv.volumeOf(item, qty)
	if inv.VolumeUsed < 0 {
		inv.VolumeUsed = 0
	}
	return nil
}

// Add puts qty of item into the inventory, topping up existing stacks of the
// item first and then filling empty slots left to right. Either the full
// quantity fits or nothing changes.
func (inv *Inventory) Add(item ItemID, qty int) error {
	if item == Empty {
		return ErrEmptyItem
	}
	if qty <= 0 {
		return ErrInvalidQty
	}
	vol := inv.volumeOf(item, qty)
	if inv.VolumeCapacity > 0 && inv.VolumeUsed+vol > inv.VolumeCapacity {
		return fmt.Errorf("%w: used=%d req=%d cap=%d", ErrVolumeExceeded, inv.VolumeUsed, vol, inv.VolumeCapacity)
	}
	if free := inv.freeSpace(item); free < qty {
		return fmt.Errorf("%w: %s fits %d of %d", ErrNoSpace, item, free, qty)
	}

	limit := inv.stackMax(item)
	remaining := qty
	for i := range inv.Slots {
		st := &inv.Slots[i]
		if st.Item != item || st.Qty >= limit {
			continue
		}
		put := min(limit-st.Qty, remaining)
		st.Qty += put
		remaining -= put
		if remaining == 0 {
			break
		}
	}
	for i := 0; i < len(inv.Slots) && remaining > 0; i++ {
		if !inv.Slots[i].IsEmpty() {
			continue
		}
		put := min(limit, remaining)
		inv.Slots[i] = Stack{Item: item, Qty: put}
		remaining -= put
	}
	inv.VolumeUsed += vol
	return nil
}

// freeSpace returns how many units of item the slots can still take.
func (inv *Inventory) freeSpace(item ItemID) int {
	limit := inv.stackMax(item)
	free := 0
	for _, st := range inv.Slots {
		switch {
		case st.IsEmpty():
			free += limit
		case st.Item == item && st.Qty < limit:
			free += limit - st.Qty
		}
	}
	return free
}

func (inv *Inventory) stackMax(item ItemID) int {
	if n, ok := inv.registry.StackMaxFor(item); ok {
		return n
	}
	return DefaultStackMax
}

func (inv *Inventory) volumeOf(item ItemID, qty int) int {
	if item == Empty || inv.VolumeCapacity <= 0 {
		return 0
	}
	v, _ := inv.registry.VolumeFor(item)
	return v * qty
}

// Serialize encodes the inventory to JSON.
func (inv *Inventory) Serialize() ([]byte, error) {
	return json.Marshal(inv)
}

// Deserialize replaces the inventory with data from JSON. Volume usage is
// recomputed from the slots with the attached registry.
func (inv *Inventory) Deserialize(b []byte) error {
	var ss struct {
		ID             string  `json:"id"`
		Owner          OwnerID `json:"owner"`
		Slots          []Stack `json:"slots"`
		VolumeCapacity int     `json:"volumeCapacity"`
	}
	if err := json.Unmarshal(b, &ss); err != nil {
		return err
	}
	return inv.reset(ss.ID, ss.Owner, ss.VolumeCapacity, ss.Slots)
}

// SerializeForStorage encodes the inventory using numeric RegistryIDs
// instead of string ItemIDs. Requires a registry.
func (inv *Inventory) SerializeForStorage() ([]byte, error) {
	if inv.registry == nil {
		return nil, errors.New("registry required for storage serialization")
	}
	ss := StorageSnapshot{
		ID:             inv.ID,
		Owner:          inv.Owner,
		VolumeCapacity: inv.VolumeCapacity,
		Slots:          make([]StorageStackSnapshot, 0, len(inv.Slots)),
	}
	for _, st := range inv.Slots {
		if st.IsEmpty() {
			ss.Slots = append(ss.Slots, StorageStackSnapshot{})
			continue
		}
		regID, ok := inv.registry.GetRegistryID(st.Item)
		if !ok {
			return nil, fmt.Errorf("item not found in registry: %s", st.Item)
		}
		ss.Slots = append(ss.Slots, StorageStackSnapshot{Item: regID, Qty: st.Qty})
	}
	return json.Marshal(ss)
}

// DeserializeFromStorage replaces the inventory with data produced by
// SerializeForStorage. Requires a registry.
func (inv *Inventory) DeserializeFromStorage(b []byte) error {
	if inv.registry == nil {
		return errors.New("registry required for storage deserialization")
	}
	var ss StorageSnapshot
	if err := json.Unmarshal(b, &ss); err != nil {
		return err
	}
	slots := make([]Stack, 0, len(ss.Slots))
	for _, st := range ss.Slots {
		if st.Item == 0 {
			slots = append(slots, Stack{})
			continue
		}
		details, ok := inv.registry.LookupByRegistryID(st.Item)
		if !ok {
			return fmt.Errorf("registry id not found: %d", st.Item)
		}
		slots = append(slots, Stack{Item: details.ID, Qty: st.Qty})
	}
	return inv.reset(ss.ID, ss.Owner, ss.VolumeCapacity, slots)
}

func (inv *Inventory) reset(id string, owner OwnerID, capacity int, slots []Stack) error {
	inv.ID = id
	inv.Owner = owner
	inv.VolumeCapacity = capacity
	inv.VolumeUsed = 0
	inv.Slots = make([]Stack, len(slots))
	for i, st := range slots {
		if err := inv.Set(i, st); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

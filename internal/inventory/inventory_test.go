package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAddMergesThenFillsEmptySlots(t *testing.T) {
	reg := NewRegistry(ItemDetails{ID: "wood", StackMax: 10})
	inv := New("inv1", "u1", 4, WithRegistry(reg))
	if err := inv.Set(1, Stack{Item: "wood", Qty: 6}); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := inv.Add("wood", 9); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	want := []Stack{{Item: "wood", Qty: 5}, {Item: "wood", Qty: 10}, {}, {}}
	for i, st := range inv.Stacks() {
		if st != want[i] {
			t.Fatalf("slot %d: expected %+v, got %+v", i, want[i], st)
		}
	}
	if inv.Count("wood") != 15 {
		t.Fatalf("expected 15 wood, got %d", inv.Count("wood"))
	}
}

func TestAddIsAllOrNothing(t *testing.T) {
	reg := NewRegistry(ItemDetails{ID: "stone", StackMax: 5})
	inv := New("inv1", "u1", 2, WithRegistry(reg))
	if err := inv.Add("stone", 11); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("expected ErrNoSpace, got %v", err)
	}
	if !inv.IsEmpty() {
		t.Fatalf("expected inventory untouched after failed add")
	}
}

func TestRemoveDrainsLeftToRight(t *testing.T) {
	inv := New("inv1", "u1", 3)
	_ = inv.Set(0, Stack{Item: "ore", Qty: 4})
	_ = inv.Set(1, Stack{Item: "gem", Qty: 1})
	_ = inv.Set(2, Stack{Item: "ore", Qty: 7})
	if err := inv.Remove("ore", 6); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if got := inv.Stacks(); !got[0].IsEmpty() || got[2].Qty != 5 || got[1].Qty != 1 {
		t.Fatalf("unexpected slots after remove: %+v", got)
	}
	if err := inv.Remove("ore", 6); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	if inv.Count("ore") != 5 {
		t.Fatalf("failed remove must not change quantity")
	}
}

func TestRejectsInvalidArguments(t *testing.T) {
	inv := New("inv1", "u1", 1)
	if err := inv.Add(Empty, 1); !errors.Is(err, ErrEmptyItem) {
		t.Fatalf("expected ErrEmptyItem, got %v", err)
	}
	if err := inv.Add("x", 0); !errors.Is(err, ErrInvalidQty) {
		t.Fatalf("expected ErrInvalidQty, got %v", err)
	}
	if err := inv.Remove("x", 0); !errors.Is(err, ErrInvalidQty) {
		t.Fatalf("expected ErrInvalidQty, got %v", err)
	}
	if err := inv.Set(5, Stack{Item: "x", Qty: 1}); err == nil {
		t.Fatalf("expected slot range error")
	}
}

func TestVolumeCapacity(t *testing.T) {
	reg := NewRegistry(ItemDetails{ID: "a", VolumePerUnit: 4})
	inv := New("vol1", "u1", 10, WithRegistry(reg), WithVolume(50))
	if err := inv.Add("a", 5); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	if inv.VolumeUsed != 20 {
		t.Fatalf("expected VolumeUsed=20, got %d", inv.VolumeUsed)
	}
	if err := inv.Add("a", 8); !errors.Is(err, ErrVolumeExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if err := inv.Remove("a", 3); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if inv.VolumeUsed != 8 {
		t.Fatalf("expected VolumeUsed=8 after remove, got %d", inv.VolumeUsed)
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	reg := NewRegistry(ItemDetails{ID: "x", VolumePerUnit: 10})
	inv := New("h1", "u1", 3, WithRegistry(reg), WithVolume(100))
	if err := inv.Set(2, Stack{Item: "x", Qty: 2}); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	data, err := inv.Serialize()
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	var out Inventory
	out.SetRegistry(reg)
	if err := out.Deserialize(data); err != nil {
		t.Fatalf("deserialize error: %v", err)
	}
	if out.ID != inv.ID || out.Owner != inv.Owner || len(out.Slots) != 3 || out.Slots[2] != inv.Slots[2] {
		t.Fatalf("mismatch after roundtrip: %+v", out)
	}
	if out.VolumeUsed != inv.VolumeUsed {
		t.Fatalf("expected VolumeUsed %d after roundtrip, got %d", inv.VolumeUsed, out.VolumeUsed)
	}
}

func TestStorageSerializationRoundTrip(t *testing.T) {
	reg := NewRegistry(
		ItemDetails{ID: "sword", Name: "Iron Sword", StackMax: 1},
		ItemDetails{ID: "potion", Name: "Health Potion", StackMax: 10},
	)
	inv := New("storage1", "player1", 4, WithRegistry(reg))
	_ = inv.Set(0, Stack{Item: "sword", Qty: 1})
	_ = inv.Set(3, Stack{Item: "potion", Qty: 5})

	data, err := inv.SerializeForStorage()
	if err != nil {
		t.Fatalf("storage serialize error: %v", err)
	}
	var out Inventory
	out.SetRegistry(reg)
	if err := out.DeserializeFromStorage(data); err != nil {
		t.Fatalf("storage deserialize error: %v", err)
	}
	for i, original := range inv.Slots {
		if out.Slots[i] != original {
			t.Fatalf("slot %d mismatch: original=%+v, restored=%+v", i, original, out.Slots[i])
		}
	}
}

func TestStorageSerializationRequiresRegistry(t *testing.T) {
	inv := New("test", "user", 1)
	if _, err := inv.SerializeForStorage(); err == nil {
		t.Fatalf("expected registry required error for storage serialization")
	}
	if err := inv.DeserializeFromStorage([]byte(`{"id":"test","slots":[]}`)); err == nil {
		t.Fatalf("expected registry required error for storage deserialization")
	}
}

func TestStorageSerializationUnregisteredItem(t *testing.T) {
	inv := New("test", "user", 1, WithRegistry(NewRegistry()))
	inv.Slots[0] = Stack{Item: "unknown", Qty: 1}
	if _, err := inv.SerializeForStorage(); err == nil {
		t.Fatalf("expected error for unregistered item during storage serialization")
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	doc := `items:
  - id: wood
    name: Lumber
    stack_max: 500
  - id: iron_ore
    numeric_id: 7
    volume_per_unit: 2
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	if n, ok := reg.StackMaxFor("wood"); !ok || n != 500 {
		t.Fatalf("expected wood stack max 500, got %d %v", n, ok)
	}
	if id, ok := reg.GetRegistryID("iron_ore"); !ok || id != 7 {
		t.Fatalf("expected iron_ore numeric id 7, got %d", id)
	}
	if reg.Name("wood") != "Lumber" || reg.Name("nothing") != "nothing" {
		t.Fatalf("unexpected names")
	}
	if got := reg.Export(); len(got) != 2 || got[0].ID != "wood" {
		t.Fatalf("unexpected export order: %+v", got)
	}
}

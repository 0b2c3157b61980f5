package world

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitas-games/logistics/internal/hex"
	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil)
	for _, u := range []User{
		{ID: "alice", PlatformID: 1001, Name: "Alice", Team: "red"},
		{ID: "bob", PlatformID: 1002, Name: "Bob", Team: "red"},
		{ID: "eve", PlatformID: 1003, Name: "Eve"},
	} {
		if err := s.AddUser(u); err != nil {
			t.Fatalf("add user: %v", err)
		}
	}
	if err := s.AddHeart("heart-a", "alice", hex.Axial{Q: 0, R: 0}, 3); err != nil {
		t.Fatalf("add heart: %v", err)
	}
	if err := s.AddHeart("heart-e", "eve", hex.Axial{Q: 20, R: 0}, 2); err != nil {
		t.Fatalf("add heart: %v", err)
	}
	return s
}

func TestAlliedContainersByOwnerAndTeam(t *testing.T) {
	s := newTestStore(t)
	mustContainer(t, s, ContainerSpec{ID: "chest-1", Name: "Chest", Heart: "heart-a", AttachedSlots: []int{4}})
	mustContainer(t, s, ContainerSpec{ID: "chest-2", Name: "Chest", Heart: "heart-a", AttachedSlots: []int{4}})
	mustContainer(t, s, ContainerSpec{ID: "chest-e", Name: "Chest", Heart: "heart-e", AttachedSlots: []int{4}})

	mustServant(t, s, "sv-alice", "alice", hex.Axial{Q: 1, R: 1}, 4)
	mustServant(t, s, "sv-bob", "bob", hex.Axial{Q: 0, R: 2}, 4)
	mustServant(t, s, "sv-eve", "eve", hex.Axial{Q: 1, R: 0}, 4)
	mustServant(t, s, "sv-far", "alice", hex.Axial{Q: 10, R: 0}, 4)

	got, err := s.AlliedContainers("sv-alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "chest-1" || got[1] != "chest-2" {
		t.Fatalf("expected chest-1, chest-2 in placement order, got %v", got)
	}
	if got, _ := s.AlliedContainers("sv-bob"); len(got) != 2 {
		t.Fatalf("expected teammate to see 2 containers, got %v", got)
	}
	if got, _ := s.AlliedContainers("sv-eve"); len(got) != 0 {
		t.Fatalf("expected non-allied servant to see nothing, got %v", got)
	}
	if got, _ := s.AlliedContainers("sv-far"); len(got) != 0 {
		t.Fatalf("expected servant outside territory to see nothing, got %v", got)
	}
	if _, err := s.AlliedContainers("missing"); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestTerritoryAndHeartChecks(t *testing.T) {
	s := newTestStore(t)
	mustContainer(t, s, ContainerSpec{ID: "chest-1", Name: "Chest", Heart: "heart-a", PrimarySlots: 2})
	mustContainer(t, s, ContainerSpec{ID: "chest-2", Name: "Chest", Heart: "heart-a"})
	mustContainer(t, s, ContainerSpec{ID: "chest-e", Name: "Chest", Heart: "heart-e"})
	mustContainer(t, s, ContainerSpec{ID: "loose", Name: "Crate"})
	mustServant(t, s, "sv", "alice", hex.Axial{Q: 3, R: 0}, 2)

	if !s.TerritoryCheck("sv", "chest-1") {
		t.Fatalf("servant on radius edge should be inside territory")
	}
	if s.TerritoryCheck("sv", "chest-e") || s.TerritoryCheck("sv", "loose") {
		t.Fatalf("servant should not be inside other territories")
	}
	if err := s.MoveServant("sv", hex.Axial{Q: 4, R: 0}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s.TerritoryCheck("sv", "chest-1") {
		t.Fatalf("servant moved out of territory")
	}

	if !s.SharedHeartConnection("chest-1", "chest-2") {
		t.Fatalf("expected shared heart")
	}
	if s.SharedHeartConnection("chest-1", "chest-e") || s.SharedHeartConnection("loose", "loose") {
		t.Fatalf("unexpected shared heart")
	}
}

func TestPrimaryInventoryAndQuantity(t *testing.T) {
	s := newTestStore(t)
	c := mustContainer(t, s, ContainerSpec{ID: "chest", Name: "Chest", Heart: "heart-a", PrimarySlots: 2, AttachedSlots: []int{3, 3}})
	mustServant(t, s, "sv", "alice", hex.Axial{}, 4)
	mustServant(t, s, "bare", "alice", hex.Axial{}, 0)

	inv, ok, err := s.PrimaryInventory("sv")
	if err != nil || !ok || inv != "sv/inventory" {
		t.Fatalf("unexpected servant inventory %q %v %v", inv, ok, err)
	}
	if _, ok, err := s.PrimaryInventory("bare"); err != nil || ok {
		t.Fatalf("expected no inventory for bare servant, got %v %v", ok, err)
	}
	if inv, ok, _ := s.PrimaryInventory("chest"); !ok || inv != c.Primary {
		t.Fatalf("unexpected container inventory %q", inv)
	}
	if _, _, err := s.PrimaryInventory("nobody"); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}

	subs, err := s.SubInventories("chest")
	if err != nil || len(subs) != 2 || subs[1] != "chest/storage-1" {
		t.Fatalf("unexpected sub inventories %v %v", subs, err)
	}

	if err := s.Deposit("sv/inventory", "ore", 7); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if q, _ := s.Quantity("sv/inventory", "ore"); q != 7 {
		t.Fatalf("expected 7 ore, got %d", q)
	}
	if s.TryRemove("sv/inventory", "ore", 8) {
		t.Fatalf("remove of more than held must fail")
	}
	if !s.TryRemove("sv/inventory", "ore", 7) {
		t.Fatalf("remove should succeed")
	}
	if s.TryAdd("nowhere", "ore", 1) {
		t.Fatalf("add to unknown inventory must fail")
	}
	if _, err := s.Quantity("nowhere", "ore"); !errors.Is(err, ErrUnknownInventory) {
		t.Fatalf("expected ErrUnknownInventory, got %v", err)
	}
}

func TestDuplicateAndUnknownOwners(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddUser(User{ID: "alice"}); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
	if _, err := s.AddServant("sv", "ghost", hex.Axial{}, 1); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	if _, err := s.AddContainer(ContainerSpec{ID: "c", Heart: "no-heart"}); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	pid, err := s.OwnerPlatformID(mustServant(t, s, "sv", "bob", hex.Axial{}, 1).ID)
	if err != nil || pid != 1002 {
		t.Fatalf("expected platform id 1002, got %d %v", pid, err)
	}
}

func TestRedistributeAgainstStore(t *testing.T) {
	s := newTestStore(t)
	mustContainer(t, s, ContainerSpec{ID: "wood-chest", Name: "Wood", Heart: "heart-a", AttachedSlots: []int{2}})
	mustContainer(t, s, ContainerSpec{ID: "spoils", Name: "Spoils", Heart: "heart-a", PrimarySlots: 4})
	mustServant(t, s, "sv", "alice", hex.Axial{Q: 1, R: -1}, 4)

	put(t, s, "wood-chest/storage-0", 0, "wood", 1)
	put(t, s, "sv/inventory", 0, "wood", 12)
	put(t, s, "sv/inventory", 1, "gem", 2)

	report, err := stash.New(s).Redistribute("sv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HasLoss() {
		t.Fatalf("unexpected loss: %+v", report.Legs)
	}
	if q, _ := s.Quantity("wood-chest/storage-0", "wood"); q != 13 {
		t.Fatalf("expected 13 wood stashed, got %d", q)
	}
	if q, _ := s.Quantity("spoils/main", "gem"); q != 2 {
		t.Fatalf("expected gems in spoils, got %d", q)
	}
	if q, _ := s.Quantity("sv/inventory", "wood"); q != 0 {
		t.Fatalf("expected servant emptied of wood, got %d", q)
	}
}

func TestLoadSeedAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	data := `users:
  - id: alice
    platform_id: 42
    name: Alice
hearts:
  - id: heart
    owner: alice
    center: {q: 0, r: 0}
    radius: 2
containers:
  - id: chest
    name: Stone chest
    heart: heart
    attached:
      - slots: 2
        items:
          - {item: stone, qty: 5}
servants:
  - id: sv
    owner: alice
    tile: {q: 1, r: 0}
    inventory:
      slots: 3
      items:
        - {item: stone, qty: 4}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := NewStore(nil)
	if err := s.Apply(seed); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if q, _ := s.Quantity("chest/storage-0", "stone"); q != 5 {
		t.Fatalf("expected 5 stone in chest, got %d", q)
	}
	if q, _ := s.Quantity("sv/inventory", "stone"); q != 4 {
		t.Fatalf("expected 4 stone on servant, got %d", q)
	}
	if pid, _ := s.OwnerPlatformID("sv"); pid != 42 {
		t.Fatalf("expected platform id 42, got %d", pid)
	}
	if got, _ := s.AlliedContainers("sv"); len(got) != 1 {
		t.Fatalf("expected seeded chest to be allied, got %v", got)
	}
}

func TestShippedSeed(t *testing.T) {
	reg, err := inventory.LoadRegistry("../../configs/items.yaml")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	seed, err := LoadSeed("../../configs/world.yaml")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	s := NewStore(reg)
	if err := s.Apply(seed); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _ := s.AlliedContainers("servant-bob-1")
	if len(got) != 3 || got[2] != "spoils-alice" {
		t.Fatalf("expected alice's three containers for her teammate, got %v", got)
	}
	if got, _ := s.AlliedContainers("servant-carol-1"); len(got) != 1 || got[0] != "chest-carol" {
		t.Fatalf("expected carol's chest only, got %v", got)
	}

	put(t, s, "servant-alice-1/inventory", 0, "copper_ore", 3)
	put(t, s, "servant-alice-1/inventory", 1, "gem", 2)
	engine := stash.New(s, stash.WithOverflowPredicate(stash.NameContains("spoils")), stash.WithRegistry(reg))
	report, err := engine.Redistribute("servant-alice-1")
	if err != nil || report.HasLoss() {
		t.Fatalf("unexpected outcome: %v %+v", err, report.Legs)
	}
	if q, _ := s.Quantity("vault-ore/storage-0", "copper_ore"); q != 8 {
		t.Fatalf("expected copper joined the vault, got %d", q)
	}
	if q, _ := s.Quantity("spoils-alice/main", "gem"); q != 2 {
		t.Fatalf("expected gems in spoils, got %d", q)
	}
}

func mustContainer(t *testing.T, s *Store, spec ContainerSpec) *Container {
	t.Helper()
	c, err := s.AddContainer(spec)
	if err != nil {
		t.Fatalf("add container %s: %v", spec.ID, err)
	}
	return c
}

func mustServant(t *testing.T, s *Store, id, owner stash.EntityID, tile hex.Axial, slots int) *Servant {
	t.Helper()
	sv, err := s.AddServant(id, owner, tile, slots)
	if err != nil {
		t.Fatalf("add servant %s: %v", id, err)
	}
	return sv
}

func put(t *testing.T, s *Store, inv stash.InventoryID, slot int, item inventory.ItemID, qty int) {
	t.Helper()
	if err := s.Put(inv, slot, inventory.Stack{Item: item, Qty: qty}); err != nil {
		t.Fatalf("put %s[%d]: %v", inv, slot, err)
	}
}

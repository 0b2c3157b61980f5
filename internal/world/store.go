// Package world is the in-memory entity store the server runs on: users,
// castle hearts and their territories, containers and servants, each with
// their inventories. It implements stash.Host.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gravitas-games/logistics/internal/hex"
	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
	"github.com/gravitas-games/logistics/internal/territory"
)

var (
	// ErrUnknownEntity is returned for handles the store does not know.
	ErrUnknownEntity = errors.New("world: unknown entity")
	// ErrUnknownInventory is returned for inventory handles the store does not know.
	ErrUnknownInventory = errors.New("world: unknown inventory")
	// ErrDuplicateEntity is returned when an id is registered twice.
	ErrDuplicateEntity = errors.New("world: duplicate entity id")
)

// User is a player account.
type User struct {
	ID         stash.EntityID `json:"id"`
	PlatformID uint64         `json:"platformId"`
	Name       string         `json:"name"`
	Team       string         `json:"team,omitempty"`
}

// Heart is a castle heart; it owns one territory.
type Heart struct {
	ID        stash.EntityID `json:"id"`
	Owner     stash.EntityID `json:"owner"`
	Territory territory.ID   `json:"territory"`
}

// Container is a placed storage building connected to a castle heart.
type Container struct {
	ID       stash.EntityID      `json:"id"`
	Name     string              `json:"name"`
	Heart    stash.EntityID      `json:"heart,omitempty"`
	Tile     hex.Axial           `json:"tile"`
	Primary  stash.InventoryID   `json:"primary,omitempty"`
	Attached []stash.InventoryID `json:"attached,omitempty"`
}

// Servant is a unit that carries its own inventory and goes on missions.
type Servant struct {
	ID        stash.EntityID    `json:"id"`
	Owner     stash.EntityID    `json:"owner"`
	Tile      hex.Axial         `json:"tile"`
	Inventory stash.InventoryID `json:"inventory,omitempty"`
}

// Store holds all entities. Every method locks, so a Store may be shared
// by the tick loop and event handlers.
type Store struct {
	mu          sync.RWMutex
	registry    *inventory.Registry
	territories *territory.Map

	users       map[stash.EntityID]*User
	hearts      map[stash.EntityID]*Heart
	containers  map[stash.EntityID]*Container
	order       []stash.EntityID // containers in placement order
	servants    map[stash.EntityID]*Servant
	inventories map[stash.InventoryID]*inventory.Inventory
}

// NewStore creates an empty world. The registry may be nil.
func NewStore(reg *inventory.Registry) *Store {
	return &Store{
		registry:    reg,
		territories: territory.NewMap(),
		users:       make(map[stash.EntityID]*User),
		hearts:      make(map[stash.EntityID]*Heart),
		containers:  make(map[stash.EntityID]*Container),
		servants:    make(map[stash.EntityID]*Servant),
		inventories: make(map[stash.InventoryID]*inventory.Inventory),
	}
}

// Registry returns the item registry attached to every inventory.
func (s *Store) Registry() *inventory.Registry { return s.registry }

// Territories exposes the territory map.
func (s *Store) Territories() *territory.Map { return s.territories }

func (s *Store) existsLocked(id stash.EntityID) bool {
	if _, ok := s.users[id]; ok {
		return true
	}
	if _, ok := s.hearts[id]; ok {
		return true
	}
	if _, ok := s.containers[id]; ok {
		return true
	}
	_, ok := s.servants[id]
	return ok
}

// AddUser registers a player.
func (s *Store) AddUser(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		return errors.New("world: user id cannot be empty")
	}
	if s.existsLocked(u.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, u.ID)
	}
	s.users[u.ID] = &u
	return nil
}

// AddHeart places a castle heart owned by owner and claims a territory of
// the given radius around center.
func (s *Store) AddHeart(id, owner stash.EntityID, center hex.Axial, radius int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
	}
	if _, ok := s.users[owner]; !ok {
		return fmt.Errorf("%w: heart owner %s", ErrUnknownEntity, owner)
	}
	terr, err := territory.New(territory.ID("territory-"+string(id)), string(id), center, radius)
	if err != nil {
		return err
	}
	if err := s.territories.Add(terr); err != nil {
		return err
	}
	s.hearts[id] = &Heart{ID: id, Owner: owner, Territory: terr.ID}
	return nil
}

// ContainerSpec describes a container to place.
type ContainerSpec struct {
	ID    stash.EntityID
	Name  string
	Heart stash.EntityID
	Tile  hex.Axial
	// PrimarySlots > 0 gives the container its own inventory.
	PrimarySlots int
	// AttachedSlots lists the slot count of each attached storage inventory.
	AttachedSlots []int
}

// AddContainer places a container and creates its inventories.
func (s *Store) AddContainer(spec ContainerSpec) (*Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec.ID == "" {
		return nil, errors.New("world: container id cannot be empty")
	}
	if s.existsLocked(spec.ID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, spec.ID)
	}
	if spec.Heart != "" {
		if _, ok := s.hearts[spec.Heart]; !ok {
			return nil, fmt.Errorf("%w: heart %s", ErrUnknownEntity, spec.Heart)
		}
	}
	c := &Container{ID: spec.ID, Name: spec.Name, Heart: spec.Heart, Tile: spec.Tile}
	if spec.PrimarySlots > 0 {
		c.Primary = s.newInventoryLocked(stash.InventoryID(string(spec.ID)+"/main"), spec.PrimarySlots)
	}
	for i, slots := range spec.AttachedSlots {
		id := stash.InventoryID(fmt.Sprintf("%s/storage-%d", spec.ID, i))
		c.Attached = append(c.Attached, s.newInventoryLocked(id, slots))
	}
	s.containers[c.ID] = c
	s.order = append(s.order, c.ID)
	return c, nil
}

// AddServant registers a servant with a personal inventory of the given
// slot count. Zero slots leaves the servant without an inventory.
func (s *Store) AddServant(id, owner stash.EntityID, tile hex.Axial, slots int) (*Servant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
	}
	if _, ok := s.users[owner]; !ok {
		return nil, fmt.Errorf("%w: servant owner %s", ErrUnknownEntity, owner)
	}
	sv := &Servant{ID: id, Owner: owner, Tile: tile}
	if slots > 0 {
		sv.Inventory = s.newInventoryLocked(stash.InventoryID(string(id)+"/inventory"), slots)
	}
	s.servants[id] = sv
	return sv, nil
}

// MoveServant changes a servant's tile.
func (s *Store) MoveServant(id stash.EntityID, tile hex.Axial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv, ok := s.servants[id]
	if !ok {
		return fmt.Errorf("%w: servant %s", ErrUnknownEntity, id)
	}
	sv.Tile = tile
	return nil
}

func (s *Store) newInventoryLocked(id stash.InventoryID, slots int) stash.InventoryID {
	s.inventories[id] = inventory.New(string(id), "", slots, inventory.WithRegistry(s.registry))
	return id
}

// Servant returns a copy of a servant.
func (s *Store) Servant(id stash.EntityID) (Servant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.servants[id]
	if !ok {
		return Servant{}, false
	}
	return *sv, true
}

// Container returns a copy of a container.
func (s *Store) Container(id stash.EntityID) (Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return Container{}, false
	}
	out := *c
	out.Attached = append([]stash.InventoryID(nil), c.Attached...)
	return out, true
}

// User returns a copy of a user.
func (s *Store) User(id stash.EntityID) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Put seeds a slot of an inventory.
func (s *Store) Put(inv stash.InventoryID, slot int, st inventory.Stack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.inventories[inv]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInventory, inv)
	}
	return i.Set(slot, st)
}

// Deposit adds items to an inventory, returning the inventory's error.
func (s *Store) Deposit(inv stash.InventoryID, item inventory.ItemID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.inventories[inv]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInventory, inv)
	}
	return i.Add(item, qty)
}

// Snapshot serializes an inventory to JSON.
func (s *Store) Snapshot(inv stash.InventoryID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.inventories[inv]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInventory, inv)
	}
	return i.Serialize()
}

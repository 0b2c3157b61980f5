package world

import (
	"fmt"

	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
)

var _ stash.Host = (*Store)(nil)

// AlliedContainers returns the containers connected to the heart whose
// territory the servant stands in, provided the heart's owner is the
// servant's owner or on the same team. Containers come back in placement
// order.
func (s *Store) AlliedContainers(unit stash.EntityID) ([]stash.EntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sv, ok := s.servants[unit]
	if !ok {
		return nil, fmt.Errorf("%w: servant %s", ErrUnknownEntity, unit)
	}
	terr, ok := s.territories.At(sv.Tile)
	if !ok {
		return nil, nil
	}
	heart, ok := s.hearts[stash.EntityID(terr.Heart)]
	if !ok || !s.alliedLocked(heart.Owner, sv.Owner) {
		return nil, nil
	}

	var out []stash.EntityID
	for _, id := range s.order {
		if s.containers[id].Heart == heart.ID {
			out = append(out, id)
		}
	}
	return out, nil
}

// alliedLocked reports whether two users share an owner or a team.
func (s *Store) alliedLocked(a, b stash.EntityID) bool {
	if a == b {
		return true
	}
	ua, okA := s.users[a]
	ub, okB := s.users[b]
	return okA && okB && ua.Team != "" && ua.Team == ub.Team
}

// Name returns a container's display name.
func (s *Store) Name(container stash.EntityID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[container]
	if !ok {
		return "", fmt.Errorf("%w: container %s", ErrUnknownEntity, container)
	}
	return c.Name, nil
}

// SubInventories returns the attached storage inventories of a container.
func (s *Store) SubInventories(container stash.EntityID) ([]stash.InventoryID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[container]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrUnknownEntity, container)
	}
	return append([]stash.InventoryID(nil), c.Attached...), nil
}

// Stacks returns a copy of an inventory's slots.
func (s *Store) Stacks(inv stash.InventoryID) ([]inventory.Stack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.inventories[inv]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInventory, inv)
	}
	return i.Stacks(), nil
}

// PrimaryInventory resolves the inventory a servant carries or a container
// holds directly.
func (s *Store) PrimaryInventory(entity stash.EntityID) (stash.InventoryID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sv, ok := s.servants[entity]; ok {
		return sv.Inventory, sv.Inventory != "", nil
	}
	if c, ok := s.containers[entity]; ok {
		return c.Primary, c.Primary != "", nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
}

// Quantity returns the current total of item in inv.
func (s *Store) Quantity(inv stash.InventoryID, item inventory.ItemID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.inventories[inv]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownInventory, inv)
	}
	return i.Count(item), nil
}

// TryRemove removes amount of item from inv, all or nothing.
func (s *Store) TryRemove(inv stash.InventoryID, item inventory.ItemID, amount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.inventories[inv]
	return ok && i.Remove(item, amount) == nil
}

// TryAdd adds amount of item to inv, all or nothing.
func (s *Store) TryAdd(inv stash.InventoryID, item inventory.ItemID, amount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.inventories[inv]
	return ok && i.Add(item, amount) == nil
}

// TerritoryCheck reports whether the character stands inside the territory
// of the heart target is connected to.
func (s *Store) TerritoryCheck(character, target stash.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.servants[character]
	if !ok {
		return false
	}
	c, ok := s.containers[target]
	if !ok || c.Heart == "" {
		return false
	}
	heart, ok := s.hearts[c.Heart]
	if !ok {
		return false
	}
	terr, ok := s.territories.Get(heart.Territory)
	return ok && terr.Contains(sv.Tile)
}

// SharedHeartConnection reports whether two containers hang off the same
// castle heart.
func (s *Store) SharedHeartConnection(a, b stash.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ca, okA := s.containers[a]
	cb, okB := s.containers[b]
	return okA && okB && ca.Heart != "" && ca.Heart == cb.Heart
}

// PlatformID returns the platform id of a user.
func (s *Store) PlatformID(user stash.EntityID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[user]
	if !ok {
		return 0, fmt.Errorf("%w: user %s", ErrUnknownEntity, user)
	}
	return u.PlatformID, nil
}

// UserByPlatformID finds the world user of a platform account.
func (s *Store) UserByPlatformID(platformID uint64) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.PlatformID == platformID {
			return *u, true
		}
	}
	return User{}, false
}

// OwnerPlatformID returns the platform id of the user owning a servant.
func (s *Store) OwnerPlatformID(servant stash.EntityID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.servants[servant]
	if !ok {
		return 0, fmt.Errorf("%w: servant %s", ErrUnknownEntity, servant)
	}
	u, ok := s.users[sv.Owner]
	if !ok {
		return 0, fmt.Errorf("%w: user %s", ErrUnknownEntity, sv.Owner)
	}
	return u.PlatformID, nil
}

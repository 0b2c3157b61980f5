package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/logistics/internal/hex"
	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
)

// Seed is a world layout loaded at startup.
type Seed struct {
	Users      []SeedUser      `yaml:"users"`
	Hearts     []SeedHeart     `yaml:"hearts"`
	Containers []SeedContainer `yaml:"containers"`
	Servants   []SeedServant   `yaml:"servants"`
}

type SeedUser struct {
	ID         string `yaml:"id"`
	PlatformID uint64 `yaml:"platform_id"`
	Name       string `yaml:"name"`
	Team       string `yaml:"team"`
}

type SeedHeart struct {
	ID     string    `yaml:"id"`
	Owner  string    `yaml:"owner"`
	Center hex.Axial `yaml:"center"`
	Radius int       `yaml:"radius"`
}

type SeedInventory struct {
	Slots int         `yaml:"slots"`
	Items []SeedStack `yaml:"items"`
}

type SeedStack struct {
	Item string `yaml:"item"`
	Qty  int    `yaml:"qty"`
}

type SeedContainer struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Heart    string          `yaml:"heart"`
	Tile     hex.Axial       `yaml:"tile"`
	Primary  *SeedInventory  `yaml:"primary"`
	Attached []SeedInventory `yaml:"attached"`
}

type SeedServant struct {
	ID        string         `yaml:"id"`
	Owner     string         `yaml:"owner"`
	Tile      hex.Axial      `yaml:"tile"`
	Inventory *SeedInventory `yaml:"inventory"`
}

// LoadSeed reads a world layout from a YAML file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse world seed: %w", err)
	}
	return &seed, nil
}

// Apply creates every entity of the seed in dependency order.
func (s *Store) Apply(seed *Seed) error {
	for _, u := range seed.Users {
		if err := s.AddUser(User{ID: stash.EntityID(u.ID), PlatformID: u.PlatformID, Name: u.Name, Team: u.Team}); err != nil {
			return err
		}
	}
	for _, h := range seed.Hearts {
		if err := s.AddHeart(stash.EntityID(h.ID), stash.EntityID(h.Owner), h.Center, h.Radius); err != nil {
			return fmt.Errorf("heart %s: %w", h.ID, err)
		}
	}
	for _, c := range seed.Containers {
		spec := ContainerSpec{ID: stash.EntityID(c.ID), Name: c.Name, Heart: stash.EntityID(c.Heart), Tile: c.Tile}
		if c.Primary != nil {
			spec.PrimarySlots = c.Primary.Slots
		}
		for _, a := range c.Attached {
			spec.AttachedSlots = append(spec.AttachedSlots, a.Slots)
		}
		placed, err := s.AddContainer(spec)
		if err != nil {
			return fmt.Errorf("container %s: %w", c.ID, err)
		}
		if c.Primary != nil {
			if err := s.fill(placed.Primary, c.Primary.Items); err != nil {
				return fmt.Errorf("container %s: %w", c.ID, err)
			}
		}
		for i, a := range c.Attached {
			if err := s.fill(placed.Attached[i], a.Items); err != nil {
				return fmt.Errorf("container %s: %w", c.ID, err)
			}
		}
	}
	for _, sv := range seed.Servants {
		slots := 0
		if sv.Inventory != nil {
			slots = sv.Inventory.Slots
		}
		placed, err := s.AddServant(stash.EntityID(sv.ID), stash.EntityID(sv.Owner), sv.Tile, slots)
		if err != nil {
			return fmt.Errorf("servant %s: %w", sv.ID, err)
		}
		if sv.Inventory != nil {
			if err := s.fill(placed.Inventory, sv.Inventory.Items); err != nil {
				return fmt.Errorf("servant %s: %w", sv.ID, err)
			}
		}
	}
	return nil
}

func (s *Store) fill(inv stash.InventoryID, items []SeedStack) error {
	for i, it := range items {
		if err := s.Put(inv, i, inventory.Stack{Item: inventory.ItemID(it.Item), Qty: it.Qty}); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

package inventory

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ItemDetails captures metadata about an item type.
type ItemDetails struct {
	ID            ItemID     `json:"id" yaml:"id"`
	NumericID     RegistryID `json:"numericId,omitempty" yaml:"numeric_id"`
	Name          string     `json:"name,omitempty" yaml:"name"`
	Category      string     `json:"category,omitempty" yaml:"category"`
	StackMax      int        `json:"stackMax,omitempty" yaml:"stack_max"`
	VolumePerUnit int        `json:"volumePerUnit,omitempty" yaml:"volume_per_unit"`
}

// Registry stores item details keyed by ItemID and provides numeric handles for
// compact storage.
type Registry struct {
	mu     sync.RWMutex
	items  map[ItemID]ItemDetails
	byID   map[RegistryID]ItemID
	nextID RegistryID
}

// NewRegistry constructs an empty registry and optionally seeds it with
// initial item details.
func NewRegistry(details ...ItemDetails) *Registry {
	r := &Registry{
		items: make(map[ItemID]ItemDetails, len(details)),
		byID:  make(map[RegistryID]ItemID, len(details)),
	}
	for _, d := range details {
		_ = r.RegisterDetails(d) // ignore duplicates during seed
	}
	return r
}

// LoadRegistry reads an item catalog from a YAML file of the form
//
//	items:
//	  - id: wood
//	    name: Lumber
//	    stack_max: 500
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item catalog: %w", err)
	}
	var doc struct {
		Items []ItemDetails `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse item catalog: %w", err)
	}
	r := NewRegistry()
	for _, d := range doc.Items {
		if err := r.RegisterDetails(d); err != nil {
			return nil, fmt.Errorf("item %q: %w", d.ID, err)
		}
	}
	return r, nil
}

// RegisterDetails inserts or updates metadata for an item. The ID must be
// non-empty.
func (r *Registry) RegisterDetails(details ItemDetails) error {
	if details.ID == Empty {
		return errors.New("inventory: item details missing id")
	}
	if details.StackMax < 0 || details.VolumePerUnit < 0 {
		return errors.New("inventory: negative stack max or volume")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.items[details.ID]
	if exists {
		if details.NumericID == 0 {
			details.NumericID = existing.NumericID
		} else if existing.NumericID != 0 && existing.NumericID != details.NumericID {
			return errors.New("inventory: numeric id mismatch for existing item")
		}
	}

	if details.NumericID == 0 {
		r.nextID++
		details.NumericID = r.nextID
	} else {
		if details.NumericID < 0 {
			return errors.New("inventory: numeric id must be positive")
		}
		if owner, collision := r.byID[details.NumericID]; collision && owner != details.ID {
			return errors.New("inventory: numeric id already assigned to another item")
		}
		if details.NumericID > r.nextID {
			r.nextID = details.NumericID
		}
	}

	r.items[details.ID] = details
	r.byID[details.NumericID] = details.ID
	return nil
}

// Lookup returns details for the provided ID, if present.
func (r *Registry) Lookup(id ItemID) (ItemDetails, bool) {
	if r == nil {
		return ItemDetails{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	details, ok := r.items[id]
	return details, ok
}

// Name returns the display name of an item, falling back to its id.
func (r *Registry) Name(id ItemID) string {
	if d, ok := r.Lookup(id); ok && d.Name != "" {
		return d.Name
	}
	return string(id)
}

// GetRegistryID returns the numeric registry identifier for the provided item.
func (r *Registry) GetRegistryID(id ItemID) (RegistryID, bool) {
	details, ok := r.Lookup(id)
	if !ok || details.NumericID == 0 {
		return 0, false
	}
	return details.NumericID, true
}

// LookupByRegistryID returns item details using the numeric registry ID.
func (r *Registry) LookupByRegistryID(id RegistryID) (ItemDetails, bool) {
	if r == nil {
		return ItemDetails{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byID[id]
	if !ok {
		return ItemDetails{}, false
	}
	details, exists := r.items[key]
	return details, exists
}

// StackMaxFor returns the per-slot limit of an item, or false if the registry
// does not define one.
func (r *Registry) StackMaxFor(id ItemID) (int, bool) {
	details, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	return details.StackMax, details.StackMax > 0
}

// VolumeFor returns a volume-per-unit value either from the registry or false
// if not defined.
func (r *Registry) VolumeFor(id ItemID) (int, bool) {
	details, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	return details.VolumePerUnit, details.VolumePerUnit > 0
}

// Export copies registry contents into a slice sorted by numeric id.
func (r *Registry) Export() []ItemDetails {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil
	}
	out := make([]ItemDetails, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NumericID < out[j].NumericID
	})
	return out
}

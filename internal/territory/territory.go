package territory

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/gravitas-games/logistics/internal/hex"
)

// ID identifies a castle territory.
type ID string

// Territory is the hex region claimed by a single castle heart.
type Territory struct {
	ID     ID        `json:"id"`
	Heart  string    `json:"heart"` // entity id of the owning castle heart
	Center hex.Axial `json:"center"`
	Radius int       `json:"radius"`

	tiles map[hex.Axial]struct{}
}

// New builds a territory covering every tile within radius of center.
func New(id ID, heart string, center hex.Axial, radius int) (*Territory, error) {
	if id == "" {
		return nil, fmt.Errorf("territory id cannot be empty")
	}
	if radius < 0 {
		return nil, fmt.Errorf("territory %s: radius cannot be negative", id)
	}
	t := &Territory{
		ID:     id,
		Heart:  heart,
		Center: center,
		Radius: radius,
		tiles:  make(map[hex.Axial]struct{}, 1+3*radius*(radius+1)),
	}
	t.generateTiles()
	return t, nil
}

// generateTiles fills the tile set in a hex radius pattern around the center.
func (t *Territory) generateTiles() {
	for _, a := range hex.Disk(t.Center, t.Radius) {
		t.tiles[a] = struct{}{}
	}
}

// Contains reports whether tile lies inside the territory.
func (t *Territory) Contains(tile hex.Axial) bool {
	_, ok := t.tiles[tile]
	return ok
}

// TileCount returns the number of tiles in the territory.
func (t *Territory) TileCount() int { return len(t.tiles) }

// Map indexes territories and answers tile lookups. Territories may not
// overlap; the first registered claim keeps a contested tile.
type Map struct {
	mu          sync.RWMutex
	territories map[ID]*Territory
	owner       map[hex.Axial]ID
}

// NewMap creates an empty territory map.
func NewMap() *Map {
	return &Map{
		territories: make(map[ID]*Territory),
		owner:       make(map[hex.Axial]ID),
	}
}

// Add registers a territory. Tiles already claimed by another territory are
// removed from the new one.
func (m *Map) Add(t *Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.territories[t.ID]; exists {
		return fmt.Errorf("territory already registered: %s", t.ID)
	}
	contested := 0
	for tile := range t.tiles {
		if _, taken := m.owner[tile]; taken {
			delete(t.tiles, tile)
			contested++
			continue
		}
		m.owner[tile] = t.ID
	}
	if contested > 0 {
		log.Printf("Territory %s overlaps existing claims, dropped %d tiles", t.ID, contested)
	}
	m.territories[t.ID] = t
	return nil
}

// Get returns a territory by id.
func (m *Map) Get(id ID) (*Territory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.territories[id]
	return t, ok
}

// At returns the territory containing tile, if any.
func (m *Map) At(tile hex.Axial) (*Territory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.owner[tile]
	if !ok {
		return nil, false
	}
	return m.territories[id], true
}

// IDs returns all registered territory ids in sorted order.
func (m *Map) IDs() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ID, 0, len(m.territories))
	for id := range m.territories {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

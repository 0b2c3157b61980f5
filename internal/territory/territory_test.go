package territory

import (
	"testing"

	"github.com/gravitas-games/logistics/internal/hex"
)

func TestTerritoryContains(t *testing.T) {
	terr, err := New("t1", "heart-1", hex.Axial{Q: 2, R: 2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terr.TileCount() != 19 {
		t.Fatalf("expected 19 tiles, got %d", terr.TileCount())
	}
	if !terr.Contains(hex.Axial{Q: 4, R: 1}) {
		t.Fatalf("expected tile at distance 2 to be inside")
	}
	if terr.Contains(hex.Axial{Q: 5, R: 2}) {
		t.Fatalf("expected tile at distance 3 to be outside")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New("", "h", hex.Axial{}, 1); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := New("t", "h", hex.Axial{}, -1); err == nil {
		t.Fatalf("expected error for negative radius")
	}
}

func TestMapOverlapFirstClaimWins(t *testing.T) {
	m := NewMap()
	a, _ := New("a", "ha", hex.Axial{Q: 0, R: 0}, 2)
	b, _ := New("b", "hb", hex.Axial{Q: 3, R: 0}, 2)
	if err := m.Add(a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := m.Add(b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	got, ok := m.At(hex.Axial{Q: 2, R: 0})
	if !ok || got.ID != "a" {
		t.Fatalf("expected contested tile to belong to a, got %+v", got)
	}
	if b.Contains(hex.Axial{Q: 2, R: 0}) {
		t.Fatalf("expected contested tile removed from b")
	}
	if got, ok := m.At(hex.Axial{Q: 4, R: 0}); !ok || got.ID != "b" {
		t.Fatalf("expected tile owned by b")
	}
	if _, ok := m.At(hex.Axial{Q: 10, R: 10}); ok {
		t.Fatalf("expected wilderness tile to have no territory")
	}
	if err := m.Add(a); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if ids := m.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

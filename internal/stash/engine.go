package stash

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gravitas-games/logistics/internal/inventory"
)

// Option configures an Engine.
type Option func(*Engine)

// WithOverflowPredicate replaces the name-based overflow classification.
func WithOverflowPredicate(p OverflowPredicate) Option {
	return func(e *Engine) {
		if p != nil {
			e.isOverflow = p
		}
	}
}

// WithRegistry resolves item names for log lines.
func WithRegistry(reg *inventory.Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine redistributes servant inventories into their territory's stashes.
type Engine struct {
	host       Host
	isOverflow OverflowPredicate
	registry   *inventory.Registry
	now        func() time.Time
}

// New creates an engine over a host store.
func New(host Host, opts ...Option) *Engine {
	e := &Engine{
		host:       host,
		isOverflow: NameContains(DefaultOverflowMarker),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Redistribute empties unit's inventory into the matching stashes.
//
// Slots are read once, left to right, and each distinct item type is handled
// at its first slot. Before every leg the current quantity is read again, so
// a type with several matching stashes offers whatever is left to each of
// them in index order. Types with no match go to the overflow container when
// there is one and stay put otherwise.
//
// Leg failures are recorded in the report and never stop the run. A failing
// collaborator call aborts the run with an error wrapping ErrUnexpected; the
// returned report then lists the legs committed before the failure.
func (e *Engine) Redistribute(unit EntityID) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		Unit:      unit,
		StartedAt: e.now(),
		Legs:      make([]Leg, 0),
	}
	abort := func(err error) (Report, error) {
		report.Aborted = true
		report.FinishedAt = e.now()
		return report, fmt.Errorf("%w: redistribute %s: %w", ErrUnexpected, unit, err)
	}

	ix, err := BuildIndex(e.host, unit, e.isOverflow)
	if err != nil {
		return abort(err)
	}
	report.IndexedItems = ix.Len()
	overflow, hasOverflow := ix.Overflow()
	if hasOverflow {
		report.Overflow = &overflow
	}

	src, ok, err := e.host.PrimaryInventory(unit)
	if err != nil {
		return abort(err)
	}
	if !ok {
		log.Printf("Unit %s has no inventory, nothing to stash", unit)
		report.NoInventory = true
		report.FinishedAt = e.now()
		return report, nil
	}
	report.Source = src

	stacks, err := e.host.Stacks(src)
	if err != nil {
		return abort(err)
	}

	seen := make(map[inventory.ItemID]struct{}, len(stacks))
	for _, st := range stacks {
		if st.IsEmpty() {
			continue
		}
		if _, done := seen[st.Item]; done {
			continue
		}
		seen[st.Item] = struct{}{}

		dests := ix.Destinations(st.Item)
		if len(dests) == 0 {
			if !hasOverflow {
				log.Printf("No stash for %s in range of %s, leaving it", e.itemName(st.Item), unit)
				continue
			}
			leg, err := e.leg(src, overflow, st.Item, true)
			if err != nil {
				return abort(err)
			}
			report.Legs = append(report.Legs, leg)
			continue
		}
		for _, dst := range dests {
			leg, err := e.leg(src, dst, st.Item, false)
			if err != nil {
				return abort(err)
			}
			report.Legs = append(report.Legs, leg)
		}
	}

	report.FinishedAt = e.now()
	t := report.Totals()
	log.Printf("Stashed inventory of %s: %d legs, %d moved, %d restored, %d lost",
		unit, len(report.Legs), t.Added, t.Restored, t.Lost)
	return report, nil
}

// leg re-reads the current quantity of item and runs one transfer.
func (e *Engine) leg(src InventoryID, dst Destination, item inventory.ItemID, overflow bool) (Leg, error) {
	qty, err := e.host.Quantity(src, item)
	if err != nil {
		return Leg{}, err
	}
	leg := Leg{
		Item:        item,
		Source:      src,
		Destination: dst,
		Overflow:    overflow,
		Amount:      qty,
	}
	leg.State = TransferItems(e.host, src, dst.Inventory, item, qty)
	if leg.State == LegLost {
		log.Printf("ERROR: %d of %s lost moving to %s", qty, e.itemName(item), dst.Container)
	}
	return leg, nil
}

func (e *Engine) itemName(item inventory.ItemID) string {
	return e.registry.Name(item)
}

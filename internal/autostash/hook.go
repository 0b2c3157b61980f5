// Package autostash empties the inventories of returning servants into
// their castle's stashes when a mission completes.
package autostash

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/logistics/internal/mission"
	"github.com/gravitas-games/logistics/internal/settings"
	"github.com/gravitas-games/logistics/internal/stash"
)

// SubscriberName is the key the hook registers under on the mission bus.
const SubscriberName = "autostash"

// Redistributor runs one stash pass for a unit.
type Redistributor interface {
	Redistribute(unit stash.EntityID) (stash.Report, error)
}

// Users resolves mission owners to platform ids.
type Users interface {
	PlatformID(user stash.EntityID) (uint64, error)
}

// Recorder receives every report the hook produces.
type Recorder interface {
	Record(ctx context.Context, r stash.Report) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r stash.Report) error

func (f RecorderFunc) Record(ctx context.Context, r stash.Report) error { return f(ctx, r) }

// Hook reacts to completed missions.
type Hook struct {
	engine    Redistributor
	users     Users
	settings  settings.Store
	recorders []Recorder
	timeout   time.Duration

	// Runs share one store and the engine does not lock, so they go one at
	// a time.
	mu sync.Mutex
}

// New creates a hook. Recorders are called in order after each run.
func New(engine Redistributor, users Users, prefs settings.Store, recorders ...Recorder) *Hook {
	return &Hook{
		engine:    engine,
		users:     users,
		settings:  prefs,
		recorders: recorders,
		timeout:   5 * time.Second,
	}
}

// AddRecorder appends a recorder to the chain.
func (h *Hook) AddRecorder(r Recorder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorders = append(h.recorders, r)
}

// SetTimeout bounds each mission's settings lookup and recorders.
func (h *Hook) SetTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// Attach subscribes the hook to a mission event bus.
func (h *Hook) Attach(bus mission.EventBus) {
	bus.Subscribe(SubscriberName, h.HandleEvent)
}

// HandleEvent is the bus callback. Only completed missions are handled.
func (h *Hook) HandleEvent(ev mission.Event) {
	if ev.Type != mission.EventMissionCompleted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if _, err := h.OnMissionComplete(ctx, ev.Mission); err != nil {
		log.Printf("Exited auto-stash early for mission %s: %v", ev.Mission.ID, err)
	}
}

// OnMissionComplete stashes the inventory of every servant of m when its
// owner has auto-stash enabled. Missions without an owner are ignored.
//
// A failing servant does not stop the others; their errors are joined into
// the returned error. Reports are returned for every servant that ran,
// including aborted ones.
func (h *Hook) OnMissionComplete(ctx context.Context, m mission.Mission) ([]stash.Report, error) {
	if m.Owner == "" {
		return nil, nil
	}
	platformID, err := h.users.PlatformID(m.Owner)
	if err != nil {
		return nil, fmt.Errorf("resolve owner of mission %s: %w", m.ID, err)
	}
	enabled, err := h.settings.AutoStashEnabled(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("read settings of %d: %w", platformID, err)
	}
	if !enabled {
		return nil, nil
	}

	var (
		reports []stash.Report
		errs    []error
	)
	for _, servant := range m.Servants {
		if servant == "" {
			continue
		}
		report, err := h.run(ctx, servant)
		if report.RunID != "" {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("servant %s: %w", servant, err))
		}
	}
	return reports, errors.Join(errs...)
}

// Stash runs one redistribution for unit outside of any mission.
func (h *Hook) Stash(ctx context.Context, unit stash.EntityID) (stash.Report, error) {
	return h.run(ctx, unit)
}

func (h *Hook) run(ctx context.Context, unit stash.EntityID) (stash.Report, error) {
	h.mu.Lock()
	report, runErr := h.engine.Redistribute(unit)
	recorders := append([]Recorder(nil), h.recorders...)
	h.mu.Unlock()

	if report.RunID == "" {
		return report, runErr
	}
	for _, r := range recorders {
		if err := r.Record(ctx, report); err != nil {
			log.Printf("Failed to record stash run %s: %v", report.RunID, err)
		}
	}
	return report, runErr
}

// Package mission runs timed servant missions. Missions complete from the
// game loop through Manager.Update, hand their loot to the servants and
// publish events that other systems react to.
package mission

import (
	"container/heap"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitas-games/logistics/internal/stash"
)

var (
	ErrNotFound   = errors.New("mission: not found")
	ErrNotRunning = errors.New("mission: not running")
	ErrBadLoot    = errors.New("mission: invalid loot")
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now for start and cancel timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRoll overrides the random source used for loot probabilities.
func WithRoll(roll func() float64) Option {
	return func(m *Manager) {
		if roll != nil {
			m.roll = roll
		}
	}
}

// Manager tracks running missions for one world.
type Manager struct {
	id       string
	sink     LootSink
	eventBus EventBus
	now      func() time.Time
	roll     func() float64

	mu         sync.RWMutex
	missions   map[ID]*Mission
	active     *missionHeap
	lastUpdate time.Time
	nextID     int64
}

func NewManager(id string, sink LootSink, eventBus EventBus, opts ...Option) *Manager {
	if eventBus == nil {
		eventBus = NewNullEventBus()
	}
	m := &Manager{
		id:       id,
		sink:     sink,
		eventBus: eventBus,
		now:      time.Now,
		roll:     rand.Float64,
		missions: make(map[ID]*Mission),
		active:   newMissionHeap(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.lastUpdate = m.now()
	return m
}

func (m *Manager) ID() string { return m.id }

// StartMission sends servants away for duration. Loot is rolled when the
// mission returns.
func (m *Manager) StartMission(owner stash.EntityID, servants []stash.EntityID, duration time.Duration, loot []LootYield) (ID, error) {
	if duration < 0 {
		return "", fmt.Errorf("mission: negative duration %s", duration)
	}
	for _, l := range loot {
		if l.Item == "" || l.Quantity <= 0 || l.Probability < 0 || l.Probability > 1 {
			return "", fmt.Errorf("%w: %+v", ErrBadLoot, l)
		}
	}

	now := m.now()
	mission := &Mission{
		ID:        m.generateID(),
		Owner:     owner,
		Servants:  append([]stash.EntityID(nil), servants...),
		State:     StateRunning,
		StartTime: now,
		EndTime:   now.Add(duration),
		Loot:      append([]LootYield(nil), loot...),
	}

	m.mu.Lock()
	m.missions[mission.ID] = mission
	heap.Push(m.active, mission)
	snap := mission.clone()
	m.mu.Unlock()

	m.eventBus.Publish(Event{Type: EventMissionStarted, Mission: snap, Timestamp: now})
	return mission.ID, nil
}

// Update completes every mission due at now. Call it from the game loop.
func (m *Manager) Update(now time.Time) {
	m.mu.Lock()
	m.lastUpdate = now
	due := m.active.due(now)
	events := make([]Event, 0, len(due))
	for _, mission := range due {
		events = append(events, m.completeLocked(mission, now))
	}
	m.mu.Unlock()

	for _, ev := range events {
		m.eventBus.Publish(ev)
	}
}

// completeLocked hands out loot and returns the event to publish.
func (m *Manager) completeLocked(mission *Mission, now time.Time) Event {
	delete(m.missions, mission.ID)
	mission.Progress = 1.0

	awarded := m.rollLoot(mission.Loot)
	for _, l := range awarded {
		if err := m.place(mission, l); err != nil {
			mission.State = StateFailed
			log.Printf("Mission %s failed to place loot: %v", mission.ID, err)
			return Event{
				Type:      EventMissionFailed,
				Mission:   mission.clone(),
				Timestamp: now,
				Data:      map[string]any{"error": err.Error()},
			}
		}
		mission.Awarded = append(mission.Awarded, l)
	}

	mission.State = StateComplete
	return Event{Type: EventMissionCompleted, Mission: mission.clone(), Timestamp: now}
}

// place gives a yield to the first servant whose inventory accepts all of it.
func (m *Manager) place(mission *Mission, l LootYield) error {
	if m.sink == nil {
		return errors.New("no loot sink")
	}
	var lastErr error
	for _, sv := range mission.Servants {
		if sv == "" {
			continue
		}
		inv, ok, err := m.sink.PrimaryInventory(sv)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		if err := m.sink.Deposit(inv, l.Item, l.Quantity); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%d %s: %w", l.Quantity, l.Item, lastErr)
	}
	return fmt.Errorf("%d %s: no servant can carry it", l.Quantity, l.Item)
}

func (m *Manager) rollLoot(loot []LootYield) []LootYield {
	if len(loot) == 0 {
		return nil
	}
	out := make([]LootYield, 0, len(loot))
	for _, l := range loot {
		if l.Probability >= 1.0 || m.roll() < l.Probability {
			out = append(out, l)
		}
	}
	return out
}

// CancelMission calls off a running mission. No loot is handed out.
func (m *Manager) CancelMission(id ID) error {
	m.mu.Lock()
	mission, ok := m.missions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if mission.State != StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, id, mission.State)
	}
	now := m.now()
	m.active.remove(id)
	mission.Progress = mission.CalculateProgress(now)
	mission.State = StateCancelled
	delete(m.missions, id)
	snap := mission.clone()
	m.mu.Unlock()

	m.eventBus.Publish(Event{Type: EventMissionCancelled, Mission: snap, Timestamp: now})
	return nil
}

// GetMission returns a snapshot of a running mission.
func (m *Manager) GetMission(id ID) (Mission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mission, ok := m.missions[id]
	if !ok {
		return Mission{}, false
	}
	out := mission.clone()
	out.Progress = mission.CalculateProgress(m.now())
	return out, true
}

// ActiveMissions returns snapshots of the running missions of owner.
func (m *Manager) ActiveMissions(owner stash.EntityID) []Mission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]Mission, 0)
	for _, mission := range m.missions {
		if mission.Owner == owner && mission.State == StateRunning {
			snap := mission.clone()
			snap.Progress = mission.CalculateProgress(now)
			out = append(out, snap)
		}
	}
	return out
}

// Count returns the number of running missions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.missions)
}

func (m *Manager) generateID() ID {
	n := atomic.AddInt64(&m.nextID, 1)
	return ID(fmt.Sprintf("%s-%d", m.id, n))
}

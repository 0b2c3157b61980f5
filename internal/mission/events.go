package mission

import (
	"sync"
	"time"
)

// EventType is the kind of mission event.
type EventType int

const (
	EventMissionStarted EventType = iota
	EventMissionCompleted
	EventMissionFailed
	EventMissionCancelled
)

func (t EventType) String() string {
	switch t {
	case EventMissionStarted:
		return "MissionStarted"
	case EventMissionCompleted:
		return "MissionCompleted"
	case EventMissionFailed:
		return "MissionFailed"
	case EventMissionCancelled:
		return "MissionCancelled"
	default:
		return "Unknown"
	}
}

// Event carries a snapshot of the mission at the time it was published.
type Event struct {
	Type      EventType      `json:"type"`
	Mission   Mission        `json:"mission"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventBus delivers mission events to named subscribers.
type EventBus interface {
	// Subscribe registers handler under name, replacing any previous one.
	Subscribe(name string, handler func(Event))
	Unsubscribe(name string)
	Publish(event Event)
}

// SimpleEventBus is an in-memory bus. Handlers run on their own goroutine.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[string]func(Event)
}

func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{handlers: make(map[string]func(Event))}
}

func (bus *SimpleEventBus) Subscribe(name string, handler func(Event)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[name] = handler
}

func (bus *SimpleEventBus) Unsubscribe(name string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, name)
}

// Publish hands the event to every subscriber asynchronously.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for _, handler := range bus.handlers {
		go handler(event)
	}
}

// SyncEventBus calls handlers inline, in subscription order.
type SyncEventBus struct {
	mu       sync.RWMutex
	names    []string
	handlers map[string]func(Event)
}

func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{handlers: make(map[string]func(Event))}
}

func (bus *SyncEventBus) Subscribe(name string, handler func(Event)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.handlers[name]; !ok {
		bus.names = append(bus.names, name)
	}
	bus.handlers[name] = handler
}

func (bus *SyncEventBus) Unsubscribe(name string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.handlers[name]; !ok {
		return
	}
	delete(bus.handlers, name)
	for i, n := range bus.names {
		if n == name {
			bus.names = append(bus.names[:i], bus.names[i+1:]...)
			break
		}
	}
}

func (bus *SyncEventBus) Publish(event Event) {
	bus.mu.RLock()
	handlers := make([]func(Event), 0, len(bus.names))
	for _, n := range bus.names {
		handlers = append(handlers, bus.handlers[n])
	}
	bus.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

// NullEventBus drops every event.
type NullEventBus struct{}

func NewNullEventBus() *NullEventBus { return &NullEventBus{} }

func (bus *NullEventBus) Subscribe(name string, handler func(Event)) {}

func (bus *NullEventBus) Unsubscribe(name string) {}

func (bus *NullEventBus) Publish(event Event) {}

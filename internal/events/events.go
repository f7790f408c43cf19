// Package events provides in-process pub/sub for appointment lifecycle
// events.
package events

import (
	"sync"
	"time"
)

// Event types published by the scheduling engine.
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentUpdated       = "appointment.updated"
	TypeAppointmentStatusChanged = "appointment.status_changed"
)

// Event is a lightweight domain event.
type Event struct {
	Type          string
	AppointmentID string
	UserID        string
	TelescopeID   string
	Status        string
	At            time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type. An empty type
// subscribes to every event.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[""]...)
	b.mu.RUnlock()

	if event.At.IsZero() {
		event.At = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/realestate/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it sees
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder records the given event types, or all when none are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle implements shared.EventHandler
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

// Events returns a copy of the recorded events in arrival order
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.handled))
	copy(out, r.handled)
	return out
}

// Count returns how many recorded events have the given type. An empty type
// counts everything.
func (r *EventRecorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if eventType == "" {
		return len(r.handled)
	}
	n := 0
	for _, e := range r.handled {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// SetError makes Handle return err
func (r *EventRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// WaitFor blocks until n events of eventType arrived or timeout elapses
func (r *EventRecorder) WaitFor(eventType string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Count(eventType) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return r.Count(eventType) >= n
}

package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/realestate/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Financing", uuid.New(), uuid.New()),
		Data:            "payload",
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := startedBus(t)
	payments := &testHandler{eventTypes: []string{"PaymentApplied"}}
	all := &testHandler{}
	bus.Subscribe(payments)
	bus.Subscribe(all)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newTestEvent("PaymentApplied"), newTestEvent("AmendmentApplied")))

	assert.Equal(t, 1, payments.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := startedBus(t)
	failing := &testHandler{err: errors.New("boom")}
	panicking := &testHandler{panicMsg: "kaboom"}
	healthy := &testHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("PaymentApplied"))
	assert.NoError(t, err)
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Failures())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	h := &testHandler{eventTypes: []string{"PaymentApplied"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PaymentApplied")))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_DropsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &testHandler{}
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PaymentApplied")))
	assert.Zero(t, h.count())
}

func TestLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewLogHandler(zap.New(core))

	ev := newTestEvent("PaymentCancelled")
	require.NoError(t, h.Handle(context.Background(), ev))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "PaymentCancelled", fields["event_type"])
	assert.Equal(t, ev.AggregateID().String(), fields["aggregate_id"])
	assert.Contains(t, fields["payload"], `"data":"payload"`)
	assert.Nil(t, h.EventTypes())
}

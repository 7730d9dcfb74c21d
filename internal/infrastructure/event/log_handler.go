package event

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/logger"
)

// LogHandler writes every event it receives as a structured log line
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a handler that logs to l
func NewLogHandler(l *zap.Logger) *LogHandler {
	return &LogHandler{logger: l.Named("events")}
}

// Handle logs the event envelope and its JSON payload
func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	logger.Enrich(ctx, h.logger).Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.ByteString("payload", payload),
	)
	return nil
}

// EventTypes subscribes to every event
func (h *LogHandler) EventTypes() []string {
	return nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/observability"
)

// EventRelay forwards committed lifecycle events to the message broker.
type EventRelay struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewEventRelay creates the relay. A nil publisher only logs events.
func NewEventRelay(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger, metrics *observability.Metrics) *EventRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRelay{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to every lifecycle event.
func (r *EventRelay) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.SubscribeAll(r.handle)
}

func (r *EventRelay) handle(ctx context.Context, event events.Event) error {
	r.logger.Debug("lifecycle event",
		zap.String("event_type", string(event.Type)),
		zap.String("entity_kind", string(event.EntityKind)),
		zap.String("entity_id", event.EntityID),
		zap.String("org_id", event.OrgID))
	if r.publisher == nil {
		return nil
	}
	err := r.publisher.Publish(ctx, string(event.Type), event)
	r.metrics.RecordPublish(string(event.Type), err)
	if err != nil {
		r.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return err
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/events"
)

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *fakePublisher) Close() {}

func TestEventRelayForwardsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pub := &fakePublisher{}
	NewEventRelay(dispatcher, pub, nil, nil).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventStatusChanged, EntityID: "p-1"})
	require.NoError(t, err)
	err = dispatcher.Publish(context.Background(), events.Event{Type: events.EventSLABreached, EntityID: "t-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"entity.status_changed", "ticket.sla_breached"}, pub.keys)
}

func TestEventRelayReportsPublishFailure(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pub := &fakePublisher{err: errors.New("channel closed")}
	NewEventRelay(dispatcher, pub, nil, nil).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventPaymentRecorded})
	assert.ErrorContains(t, err, "channel closed")
}

func TestEventRelayWithoutPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewEventRelay(dispatcher, nil, nil, nil).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventEntityCreated})
	assert.NoError(t, err)
}

func TestMutationSurvivesRelayFailure(t *testing.T) {
	f := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher()
	NewEventRelay(dispatcher, &fakePublisher{err: errors.New("broker down")}, nil, nil).RegisterHandlers()
	f.svc.dispatcher = dispatcher

	project, err := f.svc.CreateProject(context.Background(), acme, ProjectCreateInput{Name: "Intranet"})
	require.NoError(t, err)
	stored, err := f.svc.GetProject(context.Background(), acme, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, stored.ID)
}

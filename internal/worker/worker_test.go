package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/idempotency"
	"github.com/chris-alexander-pop/system-design-library/internal/router"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/chris-alexander-pop/system-design-library/internal/worker"
	cachememory "github.com/chris-alexander-pop/system-design-library/pkg/cache/adapters/memory"
	"github.com/stretchr/testify/require"
)

// fakeRouter returns a scripted PublishResult without touching real channel
// adapters, and records every request it was called with.
type fakeRouter struct {
	result router.PublishResult
	err    error
	calls  int
}

func (f *fakeRouter) Publish(ctx context.Context, req router.PublishRequest) (router.PublishResult, error) {
	f.calls++
	return f.result, f.err
}

var _ router.Router = (*fakeRouter)(nil)

func newScheduledMessage(t *testing.T) *domain.Message {
	t.Helper()
	m, err := domain.NewMessage(domain.NewMessageRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	m.Status = domain.StatusScheduled
	return m
}

func newWorker(t *testing.T, s store.MessageStore, r router.Router) *worker.Worker {
	t.Helper()
	idx := idempotency.New(cachememory.New(), idempotency.Config{})
	return worker.New(s, idx, r)
}

func TestHandleMarksDeliveriesOnSuccess(t *testing.T) {
	s := store.NewMemoryStore()
	m := newScheduledMessage(t)
	require.NoError(t, s.Save(context.Background(), m))

	r := &fakeRouter{result: router.PublishResult{Outcomes: []router.ChannelOutcome{
		{Channel: domain.ChannelEmail, Success: true, ExternalRef: "ext-1"},
	}}}
	w := newWorker(t, s, r)

	l := &singleEventLog{event: eventlog.Event{
		EventType: eventlog.EventMessageScheduled,
		Payload:   eventlog.Payload{MessageID: m.ID, Channels: []string{string(domain.ChannelEmail)}},
	}}
	require.NoError(t, w.Run(context.Background(), l))
	require.Equal(t, 1, r.calls)

	got, found, err := s.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.StatusDelivered, got.Status)
}

func TestHandleIsIdempotentOnRedeliveryAfterCompletion(t *testing.T) {
	s := store.NewMemoryStore()
	m := newScheduledMessage(t)
	require.NoError(t, s.Save(context.Background(), m))

	r := &fakeRouter{result: router.PublishResult{Outcomes: []router.ChannelOutcome{
		{Channel: domain.ChannelEmail, Success: true, ExternalRef: "ext-1"},
	}}}
	idx := idempotency.New(cachememory.New(), idempotency.Config{})
	w := worker.New(s, idx, r)

	event := eventlog.Event{
		EventType: eventlog.EventMessageScheduled,
		Payload:   eventlog.Payload{MessageID: m.ID, Channels: []string{string(domain.ChannelEmail)}},
	}
	require.NoError(t, w.Run(context.Background(), &singleEventLog{event: event}))
	require.NoError(t, w.Run(context.Background(), &singleEventLog{event: event}))

	require.Equal(t, 1, r.calls, "a redelivered event for an already-completed key must never reach the router again")
}

func TestHandleReportsFailureForUnknownMessage(t *testing.T) {
	s := store.NewMemoryStore()
	r := &fakeRouter{}
	w := newWorker(t, s, r)

	event := eventlog.Event{
		EventType: eventlog.EventMessageScheduled,
		Payload:   eventlog.Payload{MessageID: "does-not-exist", Channels: []string{string(domain.ChannelEmail)}},
	}
	require.NoError(t, w.Run(context.Background(), &singleEventLog{event: event}))
	require.Equal(t, 0, r.calls)
}

// singleEventLog delivers exactly one event to Consume's handler, then
// returns, so Run completes without blocking.
type singleEventLog struct {
	event eventlog.Event
}

func (l *singleEventLog) Publish(ctx context.Context, partitionKey string, event eventlog.Event) error {
	return nil
}

func (l *singleEventLog) Consume(ctx context.Context, handler eventlog.Handler) error {
	return handler(ctx, l.event)
}

func (l *singleEventLog) Close() error { return nil }

var _ eventlog.EventLog = (*singleEventLog)(nil)

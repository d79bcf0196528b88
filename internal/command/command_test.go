package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/command"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeEventLog records every published event without touching a broker.
type fakeEventLog struct {
	mu        sync.Mutex
	published []eventlog.Event
}

func (f *fakeEventLog) Publish(ctx context.Context, partitionKey string, event eventlog.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeEventLog) Consume(ctx context.Context, handler eventlog.Handler) error { return nil }
func (f *fakeEventLog) Close() error                                               { return nil }

func (f *fakeEventLog) events() []eventlog.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

var _ eventlog.EventLog = (*fakeEventLog)(nil)

func TestScheduleSavesAMessageInScheduledStatus(t *testing.T) {
	s := store.NewMemoryStore()
	svc := command.New(s, &fakeEventLog{})

	m, err := svc.Schedule(context.Background(), command.ScheduleRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusScheduled, m.Status)

	got, found, err := s.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.StatusScheduled, got.Status)
}

func TestSchedulePublishesAMessageScheduledEvent(t *testing.T) {
	s := store.NewMemoryStore()
	log := &fakeEventLog{}
	svc := command.New(s, log)

	m, err := svc.Schedule(context.Background(), command.ScheduleRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail, domain.ChannelSMS},
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	events := log.events()
	require.Len(t, events, 1)
	require.Equal(t, eventlog.EventMessageScheduled, events[0].EventType)
	require.Equal(t, m.ID, events[0].Payload.MessageID)
	require.ElementsMatch(t, []string{"email", "sms"}, events[0].Payload.Channels)
}

func TestScheduleRejectsInvalidContent(t *testing.T) {
	s := store.NewMemoryStore()
	svc := command.New(s, &fakeEventLog{})

	_, err := svc.Schedule(context.Background(), command.ScheduleRequest{
		OwnerID:        "owner-1",
		Text:           "",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	require.Equal(t, errors.CodeInvalidArgument, errors.Code(err))
}

func TestGetReturnsOwnedMessage(t *testing.T) {
	s := store.NewMemoryStore()
	svc := command.New(s, &fakeEventLog{})
	m, err := svc.Schedule(context.Background(), command.ScheduleRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "owner-1", m.ID)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)
}

func TestGetReportsNotFoundForAnotherOwnersMessage(t *testing.T) {
	s := store.NewMemoryStore()
	svc := command.New(s, &fakeEventLog{})
	m, err := svc.Schedule(context.Background(), command.ScheduleRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "owner-2", m.ID)
	require.Error(t, err)
	require.Equal(t, errors.CodeNotFound, errors.Code(err))
}

func TestGetReportsNotFoundForUnknownID(t *testing.T) {
	s := store.NewMemoryStore()
	svc := command.New(s, &fakeEventLog{})

	_, err := svc.Get(context.Background(), "owner-1", "does-not-exist")
	require.Error(t, err)
	require.Equal(t, errors.CodeNotFound, errors.Code(err))
}

func TestListChannelKindsReturnsAllRegisteredKinds(t *testing.T) {
	svc := command.New(store.NewMemoryStore(), &fakeEventLog{})
	kinds := svc.ListChannelKinds(context.Background())
	require.Equal(t, domain.ListChannelKinds(), kinds)
}

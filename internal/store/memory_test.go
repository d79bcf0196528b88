package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/stretchr/testify/require"
)

func newScheduledMessage(t *testing.T, scheduledAt time.Time) *domain.Message {
	t.Helper()
	m, err := domain.NewMessage(domain.NewMessageRequest{
		OwnerID:        "owner-1",
		Text:           "hello",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt:    scheduledAt,
	})
	require.NoError(t, err)
	m.Status = domain.StatusScheduled
	return m
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	m := newScheduledMessage(t, time.Now())

	require.NoError(t, s.Save(ctx, m))
	got, found, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, m.ID, got.ID)
}

func TestMemoryStoreClaimDueOnlyClaimsPastDue(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	due := newScheduledMessage(t, time.Now().Add(-time.Minute))
	notYetDue := newScheduledMessage(t, time.Now().Add(time.Hour))
	require.NoError(t, s.Save(ctx, due))
	require.NoError(t, s.Save(ctx, notYetDue))

	claimed, err := s.ClaimDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, due.ID, claimed[0].ID)

	got, _, err := s.Get(ctx, due.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, got.Status)
}

func TestMemoryStoreClaimDueRespectsLimit(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, newScheduledMessage(t, time.Now().Add(-time.Minute))))
	}

	claimed, err := s.ClaimDue(ctx, time.Now(), 3)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
}

func TestMemoryStoreMarkDeliveryIsNoOpOnceTerminal(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	m := newScheduledMessage(t, time.Now().Add(-time.Minute))
	require.NoError(t, s.Save(ctx, m))

	_, err := s.ClaimDue(ctx, time.Now(), 10)
	require.NoError(t, err)

	outcome := store.DeliveryOutcome{Status: domain.DeliveryDelivered, ExternalRef: "ext-1", At: time.Now()}
	require.NoError(t, s.MarkDelivery(ctx, m.ID, domain.ChannelEmail, outcome))

	got, _, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, got.Status)

	// Replaying the outcome must be a silent no-op (I3/P8), not an error,
	// and must not change the already-recorded external_ref.
	replay := store.DeliveryOutcome{Status: domain.DeliveryFailed, Error: "should be ignored", At: time.Now()}
	require.NoError(t, s.MarkDelivery(ctx, m.ID, domain.ChannelEmail, replay))

	got, _, err = s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, got.Status)
	d, found := got.Delivery(domain.ChannelEmail)
	require.True(t, found)
	require.Equal(t, "ext-1", d.ExternalRef)
}

package store

import (
	"sync"
	"time"

	"context"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/statemachine"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// MemoryStore is an in-process MessageStore for tests and single-replica
// deployments. Claiming is serialized by a single mutex, which trivially
// satisfies the no-overlapping-rows requirement for a single process.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]*domain.Message)}
}

func (s *MemoryStore) Save(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.messages[m.ID]
	if !ok {
		clone := *m
		clone.Deliveries = append([]domain.Delivery(nil), m.Deliveries...)
		s.messages[m.ID] = &clone
		return nil
	}

	// Update path: replace only status, updated_at, and delivery outcome
	// columns; never overwrite a terminal delivery's fields (I3).
	existing.Status = m.Status
	existing.Touch(m.UpdatedAt)
	for _, d := range m.Deliveries {
		cur, found := existing.Delivery(d.Channel)
		if !found || cur.Status.Terminal() {
			continue
		}
		*cur = d
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, false, nil
	}
	clone := *m
	clone.Deliveries = append([]domain.Delivery(nil), m.Deliveries...)
	return &clone, true, nil
}

func (s *MemoryStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]ClaimedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []ClaimedMessage
	for _, m := range s.messages {
		if len(claimed) >= limit {
			break
		}
		if m.Status != domain.StatusScheduled || m.ScheduledAt.After(now) {
			continue
		}
		next, err := statemachine.Claim(m.Status)
		if err != nil {
			return nil, err
		}
		m.Status = next
		m.Touch(now)
		claimed = append(claimed, ClaimedMessage{
			ID:            m.ID,
			Channels:      append([]domain.ChannelKind(nil), m.TargetChannels...),
			CorrelationID: m.CorrelationID,
		})
	}
	return claimed, nil
}

func (s *MemoryStore) MarkDelivery(ctx context.Context, id string, channel domain.ChannelKind, outcome DeliveryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return errors.NotFound("message not found", nil)
	}
	d, found := m.Delivery(channel)
	if !found {
		return errors.NotFound("no delivery row for channel "+string(channel), nil)
	}
	if d.Status.Terminal() {
		// I3/P8: terminal deliveries are immutable; replaying the same
		// outcome is a silent no-op, not an error.
		return nil
	}

	if err := statemachine.TransitionDelivery(d, outcome.Status, outcome.ExternalRef, outcome.Error, outcome.At); err != nil {
		return err
	}
	m.Status = statemachine.DeriveMessageStatus(m.Status, m.Deliveries)
	m.Touch(outcome.At)
	return nil
}

var _ MessageStore = (*MemoryStore)(nil)

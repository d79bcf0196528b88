// Package command implements CommandService (§4.1): the write/read surface
// ahead of MessageStore — schedule a new Message, fetch one back (scoped to
// its owner), and list the supported ChannelKinds.
package command

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/correlation"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// ScheduleRequest is the Schedule operation's input.
type ScheduleRequest struct {
	OwnerID        string
	Text           string
	MediaRef       string
	RecipientRef   string
	TargetChannels []domain.ChannelKind
	ScheduledAt    time.Time
}

// Service is the CommandService implementation.
type Service struct {
	store store.MessageStore
	log   eventlog.EventLog
}

// New constructs a Service over the given MessageStore and EventLog.
func New(s store.MessageStore, l eventlog.EventLog) *Service {
	return &Service{store: s, log: l}
}

// Schedule validates and constructs a new Message in Draft status, then
// transitions it to Scheduled (§4.9's Draft -> Scheduled edge) before
// saving, so Dispatcher can claim it as soon as its scheduled_at arrives.
// As its last step it publishes a message.scheduled event itself (§4.1's
// ordered side effect (4)); this is a best-effort head start on dispatch,
// not load-bearing for correctness, since a message Dispatcher never sees
// published here is still picked up by the next sweep once scheduled_at
// arrives (same recovery path as dispatcher.publishClaimed).
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (*domain.Message, error) {
	m, err := domain.NewMessage(domain.NewMessageRequest{
		OwnerID:        req.OwnerID,
		Text:           req.Text,
		MediaRef:       req.MediaRef,
		RecipientRef:   req.RecipientRef,
		TargetChannels: req.TargetChannels,
		ScheduledAt:    req.ScheduledAt,
		CorrelationID:  correlation.IDOrNew(ctx),
	})
	if err != nil {
		return nil, err
	}
	m.Status = domain.StatusScheduled
	if err := s.store.Save(ctx, m); err != nil {
		return nil, err
	}

	s.publishScheduled(ctx, m)
	return m, nil
}

func (s *Service) publishScheduled(ctx context.Context, m *domain.Message) {
	channels := make([]string, len(m.TargetChannels))
	for i, c := range m.TargetChannels {
		channels[i] = string(c)
	}
	event := eventlog.Event{
		EventType: eventlog.EventMessageScheduled,
		Payload: eventlog.Payload{
			MessageID: m.ID,
			Channels:  channels,
		},
		CorrelationID: m.CorrelationID,
	}
	if err := s.log.Publish(ctx, m.ID, event); err != nil {
		logger.L().ErrorContext(ctx, "failed to publish scheduling event from intake", "message_id", m.ID, "error", err)
	}
}

// Get fetches a Message by id, scoped to ownerID. A message owned by
// another party is reported as NotFound, never Forbidden, so the response
// gives no signal that the id exists at all (P4, IDOR prevention).
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Message, error) {
	m, found, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found || m.OwnerID != ownerID {
		return nil, errors.NotFound("message not found", nil)
	}
	return m, nil
}

// ListChannelKinds returns the supported ChannelKinds and their metadata.
func (s *Service) ListChannelKinds(ctx context.Context) []domain.ChannelMetadata {
	return domain.ListChannelKinds()
}

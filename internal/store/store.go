// Package store implements MessageStore (§4.2): the transactional
// repository for Messages and their per-channel Delivery rows. The
// production adapter is GORM/Postgres-backed (internal/store/gorm.go); an
// in-memory adapter (internal/store/memory.go) backs tests and
// single-process deployments.
package store

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
)

// ClaimedMessage is one row returned by ClaimDue: enough to publish a
// scheduling event without re-reading the full aggregate.
type ClaimedMessage struct {
	ID            string
	Channels      []domain.ChannelKind
	CorrelationID string
}

// DeliveryOutcome is the terminal result MarkDelivery writes for one
// (message, channel) pair.
type DeliveryOutcome struct {
	Status      domain.DeliveryStatus
	ExternalRef string
	Error       string
	At          time.Time
}

// MessageStore is the transactional repository contract from §4.2.
type MessageStore interface {
	// Save performs INSERT-or-UPDATE: a new Message is inserted in full; an
	// existing one has only status, updated_at, and delivery outcome
	// columns replaced, never its terminal fields (I3).
	Save(ctx context.Context, m *domain.Message) error

	// Get returns the Message by id, or (nil, false) if none exists.
	Get(ctx context.Context, id string) (*domain.Message, bool, error)

	// ClaimDue selects messages with status Scheduled and scheduled_at <=
	// now, atomically transitions them to Processing, and returns the
	// claimed identifiers. Concurrent callers (Dispatcher replicas) never
	// observe overlapping rows.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]ClaimedMessage, error)

	// MarkDelivery writes a terminal Delivery outcome and re-derives the
	// aggregate Message.status (§4.9). It is a no-op, not an error, if the
	// delivery is already terminal (I3, P8).
	MarkDelivery(ctx context.Context, id string, channel domain.ChannelKind, outcome DeliveryOutcome) error
}

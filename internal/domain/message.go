package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/google/uuid"
)

const maxContentTextLen = 4096

// MessageStatus is the aggregate's lifecycle state, derived per the state
// machine in internal/statemachine.
type MessageStatus string

const (
	StatusDraft              MessageStatus = "draft"
	StatusScheduled          MessageStatus = "scheduled"
	StatusProcessing         MessageStatus = "processing"
	StatusDelivered          MessageStatus = "delivered"
	StatusPartiallyDelivered MessageStatus = "partially_delivered"
	StatusFailed             MessageStatus = "failed"
)

// DeliveryStatus is the state of a single (message, channel) attempt.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Terminal reports whether s admits no further transitions (I3).
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

// Content is the immutable, validated body of a Message. It is only ever
// produced by NewContent, which enforces the text/media_ref constraints at
// construction time so no later code needs to re-validate it.
type Content struct {
	text     string
	mediaRef string
}

// Text returns the trimmed, bounded message body.
func (c Content) Text() string { return c.text }

// MediaRef returns the optional media URL, or "" if none was supplied.
func (c Content) MediaRef() string { return c.mediaRef }

// HasMedia reports whether a media_ref is attached.
func (c Content) HasMedia() bool { return c.mediaRef != "" }

// NewContent is the smart constructor for Content: it trims and bounds the
// text and validates the media_ref scheme, returning a Validation AppError
// on any violation instead of ever producing an invalid value.
func NewContent(text, mediaRef string) (Content, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Content{}, errors.InvalidArgument("content text must not be empty", nil)
	}
	if utf8.RuneCountInString(text) > maxContentTextLen {
		return Content{}, errors.InvalidArgument("content text exceeds 4096 characters", nil)
	}
	mediaRef = strings.TrimSpace(mediaRef)
	if mediaRef != "" && !validMediaRefScheme(mediaRef) {
		return Content{}, errors.InvalidArgument("media_ref must use https or s3 scheme", nil)
	}
	return Content{text: text, mediaRef: mediaRef}, nil
}

func validMediaRefScheme(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "s3://")
}

// Delivery is the attempt history for one (message, channel) pair. Fields
// are mutated exclusively through MarkDelivered/MarkFailed, which refuse to
// overwrite a terminal status (I3).
type Delivery struct {
	Channel     ChannelKind
	Status      DeliveryStatus
	ExternalRef string
	Error       string
	DeliveredAt *time.Time
}

// MarkDelivered transitions a Pending delivery to Delivered. It is a no-op
// error, not a panic, if the delivery is already terminal: callers (the
// store's mark_delivery path) are expected to check this before persisting.
func (d *Delivery) MarkDelivered(externalRef string, at time.Time) error {
	if d.Status.Terminal() {
		return errors.New(errors.CodeInternal, "cannot overwrite a terminal delivery", nil)
	}
	d.Status = DeliveryDelivered
	d.ExternalRef = externalRef
	d.DeliveredAt = &at
	return nil
}

// MarkFailed transitions a Pending delivery to Failed.
func (d *Delivery) MarkFailed(reason string) error {
	if d.Status.Terminal() {
		return errors.New(errors.CodeInternal, "cannot overwrite a terminal delivery", nil)
	}
	d.Status = DeliveryFailed
	d.Error = reason
	return nil
}

// Message is the aggregate root: a scheduled, multi-channel publication and
// its per-channel Delivery rows.
type Message struct {
	ID              string
	OwnerID         string
	Content         Content
	TargetChannels  []ChannelKind
	ScheduledAt     time.Time
	Status          MessageStatus
	RecipientRef    string
	Deliveries      []Delivery
	CorrelationID   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewMessageRequest is the validated input to NewMessage, mirroring the
// Schedule command's input constraints (§4.1).
type NewMessageRequest struct {
	OwnerID        string
	Text           string
	MediaRef       string
	RecipientRef   string
	TargetChannels []ChannelKind
	ScheduledAt    time.Time
	CorrelationID  string
}

// NewMessage constructs a fresh Message in Draft status with one Pending
// Delivery per target channel (I1), deduplicating and sorting channels into
// a stable order.
func NewMessage(req NewMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, errors.InvalidArgument("owner_id must not be empty", nil)
	}
	if len(req.TargetChannels) == 0 {
		return nil, errors.InvalidArgument("at least one target channel is required", nil)
	}
	if req.ScheduledAt.IsZero() {
		return nil, errors.InvalidArgument("scheduled_at is required", nil)
	}
	content, err := NewContent(req.Text, req.MediaRef)
	if err != nil {
		return nil, err
	}

	channels := dedupeChannels(req.TargetChannels)
	for _, c := range channels {
		if !c.Valid() {
			return nil, errors.InvalidArgument("unrecognized channel kind: "+string(c), nil)
		}
		if m, _ := c.Metadata(); m.RequiresMedia && !content.HasMedia() {
			return nil, errors.InvalidArgument(string(c)+" requires a media_ref", nil)
		}
	}

	now := time.Now().UTC()
	deliveries := make([]Delivery, len(channels))
	for i, c := range channels {
		deliveries[i] = Delivery{Channel: c, Status: DeliveryPending}
	}

	return &Message{
		ID:             uuid.New().String(),
		OwnerID:        req.OwnerID,
		Content:        content,
		TargetChannels: channels,
		ScheduledAt:    req.ScheduledAt.UTC(),
		Status:         StatusDraft,
		RecipientRef:   req.RecipientRef,
		Deliveries:     deliveries,
		CorrelationID:  req.CorrelationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func dedupeChannels(in []ChannelKind) []ChannelKind {
	seen := make(map[ChannelKind]bool, len(in))
	out := make([]ChannelKind, 0, len(in))
	for _, c := range in {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Delivery looks up this message's Delivery row for channel c.
func (m *Message) Delivery(c ChannelKind) (*Delivery, bool) {
	for i := range m.Deliveries {
		if m.Deliveries[i].Channel == c {
			return &m.Deliveries[i], true
		}
	}
	return nil, false
}

// Touch advances UpdatedAt, enforcing I4 (monotonic updated_at) by never
// moving it backwards even if called with a clock that appears to regress.
func (m *Message) Touch(at time.Time) {
	if at.After(m.UpdatedAt) {
		m.UpdatedAt = at
	}
}

// IdempotencyMaterial returns the canonical (message_id, sorted channels)
// tuple the Worker hashes into an idempotency key (§3).
func (m *Message) IdempotencyMaterial() (string, []ChannelKind) {
	channels := make([]ChannelKind, len(m.TargetChannels))
	copy(channels, m.TargetChannels)
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return m.ID, channels
}

// Submittable is the read-only view shared by Message and Certification:
// id, owner, status, schedule, target channels and deliveries.
// CommandService, MessageStore, Dispatcher and Worker take *Message
// directly and do not accept a Submittable, so only the message path has
// claim, dispatch and delivery handling (see DESIGN.md's note on
// Message/Certification unification).
type Submittable interface {
	GetID() string
	GetOwnerID() string
	GetStatus() MessageStatus
	GetScheduledAt() time.Time
	GetTargetChannels() []ChannelKind
	GetDeliveries() []Delivery
}

func (m *Message) GetID() string                      { return m.ID }
func (m *Message) GetOwnerID() string                 { return m.OwnerID }
func (m *Message) GetStatus() MessageStatus            { return m.Status }
func (m *Message) GetScheduledAt() time.Time           { return m.ScheduledAt }
func (m *Message) GetTargetChannels() []ChannelKind    { return m.TargetChannels }
func (m *Message) GetDeliveries() []Delivery           { return m.Deliveries }

var _ Submittable = (*Message)(nil)

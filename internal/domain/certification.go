package domain

import (
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/google/uuid"
)

// CertificationAuthority is a target "channel" for the certification path:
// a body the submission is published to, in place of a social channel.
type CertificationAuthority string

// CertificationFields is the structured payload a certification submission
// carries, in place of a Message's free-text Content.
type CertificationFields struct {
	SubjectName string
	Credential  string
	Attributes  map[string]string
}

// Certification is the second Submittable implementation (§9's Open
// Question on the certification path): it mirrors Message's status and
// per-target Delivery rows, substituting structured fields for free text
// and authorities for channels. Only the model and its constructor exist;
// no store, Dispatcher or Worker path accepts a Certification.
type Certification struct {
	ID            string
	OwnerID       string
	Fields        CertificationFields
	Authorities   []ChannelKind
	ScheduledAt   time.Time
	Status        MessageStatus
	Deliveries    []Delivery
	CorrelationID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCertificationRequest mirrors NewMessageRequest for the certification
// vertical.
type NewCertificationRequest struct {
	OwnerID       string
	Fields        CertificationFields
	Authorities   []ChannelKind
	ScheduledAt   time.Time
	CorrelationID string
}

// NewCertification constructs a fresh Certification in Draft status with
// one Pending Delivery per target authority.
func NewCertification(req NewCertificationRequest) (*Certification, error) {
	if req.OwnerID == "" {
		return nil, errors.InvalidArgument("owner_id must not be empty", nil)
	}
	if req.Fields.SubjectName == "" {
		return nil, errors.InvalidArgument("subject_name is required", nil)
	}
	if len(req.Authorities) == 0 {
		return nil, errors.InvalidArgument("at least one authority is required", nil)
	}
	if req.ScheduledAt.IsZero() {
		return nil, errors.InvalidArgument("scheduled_at is required", nil)
	}

	channels := dedupeChannels(req.Authorities)
	deliveries := make([]Delivery, len(channels))
	for i, c := range channels {
		deliveries[i] = Delivery{Channel: c, Status: DeliveryPending}
	}

	now := time.Now().UTC()
	return &Certification{
		ID:            uuid.New().String(),
		OwnerID:       req.OwnerID,
		Fields:        req.Fields,
		Authorities:   channels,
		ScheduledAt:   req.ScheduledAt.UTC(),
		Status:        StatusDraft,
		Deliveries:    deliveries,
		CorrelationID: req.CorrelationID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (c *Certification) GetID() string                   { return c.ID }
func (c *Certification) GetOwnerID() string              { return c.OwnerID }
func (c *Certification) GetStatus() MessageStatus         { return c.Status }
func (c *Certification) GetScheduledAt() time.Time        { return c.ScheduledAt }
func (c *Certification) GetTargetChannels() []ChannelKind { return c.Authorities }
func (c *Certification) GetDeliveries() []Delivery        { return c.Deliveries }

var _ Submittable = (*Certification)(nil)

package domain_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/test"
)

type MessageSuite struct {
	test.Suite
}

func TestMessageSuite(t *testing.T) {
	test.Run(t, new(MessageSuite))
}

func (s *MessageSuite) newRequest() domain.NewMessageRequest {
	return domain.NewMessageRequest{
		OwnerID:        "owner-1",
		Text:           "hello world",
		TargetChannels: []domain.ChannelKind{domain.ChannelEmail, domain.ChannelSMS},
		ScheduledAt:    time.Now().Add(time.Hour),
		RecipientRef:   "recipient-1",
	}
}

func (s *MessageSuite) TestNewMessageDeduplicatesAndSortsChannels() {
	req := s.newRequest()
	req.TargetChannels = []domain.ChannelKind{domain.ChannelSMS, domain.ChannelEmail, domain.ChannelSMS}

	m, err := domain.NewMessage(req)
	s.Require().NoError(err)
	s.Equal([]domain.ChannelKind{domain.ChannelEmail, domain.ChannelSMS}, m.TargetChannels)
	s.Len(m.Deliveries, 2)
	for _, d := range m.Deliveries {
		s.Equal(domain.DeliveryPending, d.Status)
	}
}

func (s *MessageSuite) TestNewMessageRejectsEmptyOwnerID() {
	req := s.newRequest()
	req.OwnerID = ""
	_, err := domain.NewMessage(req)
	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.Code(err))
}

func (s *MessageSuite) TestNewMessageRejectsUnrecognizedChannel() {
	req := s.newRequest()
	req.TargetChannels = []domain.ChannelKind{"carrier-pigeon"}
	_, err := domain.NewMessage(req)
	s.Require().Error(err)
}

func (s *MessageSuite) TestNewMessageRejectsMediaRequiredChannelWithoutMedia() {
	req := s.newRequest()
	req.TargetChannels = []domain.ChannelKind{domain.ChannelInstagram}
	_, err := domain.NewMessage(req)
	s.Require().Error(err)
}

func (s *MessageSuite) TestNewMessageAcceptsMediaRequiredChannelWithMedia() {
	req := s.newRequest()
	req.TargetChannels = []domain.ChannelKind{domain.ChannelInstagram}
	req.MediaRef = "https://example.com/image.png"
	m, err := domain.NewMessage(req)
	s.Require().NoError(err)
	s.True(m.Content.HasMedia())
}

func (s *MessageSuite) TestDeliveryMarkDeliveredRefusesTerminal() {
	d := &domain.Delivery{Status: domain.DeliveryPending}
	s.Require().NoError(d.MarkDelivered("ext-1", time.Now()))
	s.Equal(domain.DeliveryDelivered, d.Status)

	err := d.MarkDelivered("ext-2", time.Now())
	s.Require().Error(err)
	s.Equal("ext-1", d.ExternalRef, "a terminal delivery's external_ref must never change")
}

func (s *MessageSuite) TestTouchNeverMovesBackwards() {
	m, err := domain.NewMessage(s.newRequest())
	s.Require().NoError(err)

	later := m.UpdatedAt.Add(time.Minute)
	m.Touch(later)
	s.Equal(later, m.UpdatedAt)

	m.Touch(later.Add(-time.Hour))
	s.Equal(later, m.UpdatedAt, "touch must not regress updated_at")
}

func (s *MessageSuite) TestIdempotencyMaterialIsOrderIndependent() {
	req := s.newRequest()
	req.TargetChannels = []domain.ChannelKind{domain.ChannelSMS, domain.ChannelEmail}
	m1, err := domain.NewMessage(req)
	s.Require().NoError(err)

	req.TargetChannels = []domain.ChannelKind{domain.ChannelEmail, domain.ChannelSMS}
	m2, err := domain.NewMessage(req)
	s.Require().NoError(err)

	_, c1 := m1.IdempotencyMaterial()
	_, c2 := m2.IdempotencyMaterial()
	s.Equal(c1, c2)
}

package domain_test

import (
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNewCertificationRejectsMissingSubjectName(t *testing.T) {
	_, err := domain.NewCertification(domain.NewCertificationRequest{
		OwnerID:     "owner-1",
		Authorities: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.Error(t, err)
}

func TestNewCertificationRejectsNoAuthorities(t *testing.T) {
	_, err := domain.NewCertification(domain.NewCertificationRequest{
		OwnerID:     "owner-1",
		Fields:      domain.CertificationFields{SubjectName: "Jane Doe"},
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.Error(t, err)
}

func TestNewCertificationBuildsOnePendingDeliveryPerAuthority(t *testing.T) {
	c, err := domain.NewCertification(domain.NewCertificationRequest{
		OwnerID:     "owner-1",
		Fields:      domain.CertificationFields{SubjectName: "Jane Doe", Credential: "CCNA"},
		Authorities: []domain.ChannelKind{domain.ChannelEmail, domain.ChannelEmail, domain.ChannelLinkedIn},
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, c.Status)
	require.Len(t, c.Deliveries, 2, "duplicate authorities must be deduped")
	for _, d := range c.Deliveries {
		require.Equal(t, domain.DeliveryPending, d.Status)
	}
}

func TestNewCertificationSatisfiesSubmittable(t *testing.T) {
	c, err := domain.NewCertification(domain.NewCertificationRequest{
		OwnerID:     "owner-1",
		Fields:      domain.CertificationFields{SubjectName: "Jane Doe"},
		Authorities: []domain.ChannelKind{domain.ChannelEmail},
		ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	var s domain.Submittable = c
	require.Equal(t, c.ID, s.GetID())
	require.Equal(t, c.OwnerID, s.GetOwnerID())
}

package email_test

import (
	"testing"

	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/email"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingAPIKey(t *testing.T) {
	_, err := email.New(email.Config{FromEmail: "noreply@example.com"})
	require.Error(t, err)
}

func TestNewRejectsMalformedFromEmail(t *testing.T) {
	_, err := email.New(email.Config{APIKey: "key", FromEmail: "not-an-email"})
	require.Error(t, err)
}

func TestNewAcceptsValidConfig(t *testing.T) {
	a, err := email.New(email.Config{APIKey: "key", FromEmail: "noreply@example.com"})
	require.NoError(t, err)
	require.Equal(t, domain.ChannelEmail, a.Channel())
}

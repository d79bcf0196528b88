package sms_test

import (
	"testing"

	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/sms"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingCredentials(t *testing.T) {
	_, err := sms.New(sms.Config{})
	require.Error(t, err)
}

func TestNewRejectsNonE164FromNumber(t *testing.T) {
	_, err := sms.New(sms.Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "555-0100",
	})
	require.Error(t, err)
}

func TestNewAcceptsValidConfig(t *testing.T) {
	a, err := sms.New(sms.Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550100",
	})
	require.NoError(t, err)
	require.NotNil(t, a)
}

package router_test

import (
	"context"
	"testing"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	channelmemory "github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/memory"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/router"
	"github.com/stretchr/testify/require"
)

func TestDirectRouterFansOutToEveryChannel(t *testing.T) {
	email := channelmemory.New(domain.ChannelEmail)
	sms := channelmemory.New(domain.ChannelSMS)
	registry := channel.NewRegistry(email, sms)
	r := router.NewDirectRouter(registry, 4)

	result, err := r.Publish(context.Background(), router.PublishRequest{
		Text:     "hello",
		Channels: []domain.ChannelKind{domain.ChannelEmail, domain.ChannelSMS},
	})
	require.NoError(t, err)
	require.False(t, result.Blocked)
	require.Len(t, result.Outcomes, 2)
	require.Equal(t, 1, email.CallCount())
	require.Equal(t, 1, sms.CallCount())
}

func TestDirectRouterReportsMissingAdapterAsValidationFailure(t *testing.T) {
	registry := channel.NewRegistry()
	r := router.NewDirectRouter(registry, 4)

	result, err := r.Publish(context.Background(), router.PublishRequest{
		Text:     "hello",
		Channels: []domain.ChannelKind{domain.ChannelEmail},
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	require.False(t, result.Outcomes[0].Success)
	require.Equal(t, channel.ErrorCategoryValidation, result.Outcomes[0].Category)
}

func TestDirectRouterPropagatesAdapterFailure(t *testing.T) {
	sms := channelmemory.New(domain.ChannelSMS).WithResult(func(req channel.SendRequest) channel.SendResult {
		return channel.SendResult{Success: false, Error: "carrier rejected", Category: channel.ErrorCategoryTransport}
	})
	registry := channel.NewRegistry(sms)
	r := router.NewDirectRouter(registry, 4)

	result, err := r.Publish(context.Background(), router.PublishRequest{
		Text:     "hello",
		Channels: []domain.ChannelKind{domain.ChannelSMS},
	})
	require.NoError(t, err)
	require.False(t, result.Outcomes[0].Success)
	require.Equal(t, "carrier rejected", result.Outcomes[0].Error)
}

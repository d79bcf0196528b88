// Package router implements ChannelRouter (§4.6): given a request and its
// target channels, invoke adapters concurrently and aggregate outcomes.
// Two variants share the same Router interface: Direct calls adapters with
// verbatim content; AI-augmented routes content through a transformation
// agent first, with guardrails on both sides of the transformation.
package router

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
)

// PublishRequest is the router's input: the content to deliver, which
// channels to deliver it to, and ambient metadata (correlation id, etc).
type PublishRequest struct {
	Text         string
	MediaRef     string
	RecipientRef string
	Channels     []domain.ChannelKind
	Metadata     map[string]string
}

// ChannelOutcome is one channel's result within a PublishResult.
type ChannelOutcome struct {
	Channel     domain.ChannelKind
	Success     bool
	ExternalRef string
	Error       string
	Category    channel.ErrorCategory
}

// PublishResult aggregates every channel's outcome for one PublishRequest.
type PublishResult struct {
	Outcomes []ChannelOutcome
	Blocked  bool
	Reason   string
	Duration time.Duration
}

// Router is the ChannelRouter contract; Direct and AI-augmented are its two
// implementations.
type Router interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

// guardrailBlockedOutcome builds an all-channels-skipped result (§4.7) for
// an input filter that returned Blocked.
func guardrailBlockedOutcome(channels []domain.ChannelKind, reason string) PublishResult {
	outcomes := make([]ChannelOutcome, len(channels))
	for i, c := range channels {
		outcomes[i] = ChannelOutcome{
			Channel:  c,
			Success:  false,
			Error:    "guardrail_blocked: " + reason,
			Category: channel.ErrorCategoryGuardrail,
		}
	}
	return PublishResult{Outcomes: outcomes, Blocked: true, Reason: reason}
}

// sendOne invokes the adapter registered for c through the registry's
// per-channel CircuitBreaker, translating a missing adapter into a
// validation-category failure rather than a panic.
func sendOne(ctx context.Context, registry *channel.Registry, c domain.ChannelKind, req channel.SendRequest) ChannelOutcome {
	result, ok := registry.Send(ctx, c, req)
	if !ok {
		return ChannelOutcome{Channel: c, Success: false, Error: "no adapter configured for channel", Category: channel.ErrorCategoryValidation}
	}
	return ChannelOutcome{
		Channel:     c,
		Success:     result.Success,
		ExternalRef: result.ExternalRef,
		Error:       result.Error,
		Category:    result.Category,
	}
}

// Package channel defines the ChannelAdapter contract (§4.5): transmit one
// rendered payload to one external channel and report its outcome.
// Concrete adapters live under internal/channel/adapters; none of them
// retries internally — retry policy belongs to the Worker.
package channel

import (
	"context"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/resilience"
)

// ErrorCategory distinguishes a validation rejection from a transport
// failure, so the Worker and StateMachine can record the right error
// taxonomy (§7).
type ErrorCategory string

const (
	ErrorCategoryNone       ErrorCategory = ""
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryTransport  ErrorCategory = "channel_transport"
	ErrorCategoryGuardrail  ErrorCategory = "guardrail_blocked"
)

// SendRequest is the payload handed to an adapter for one channel.
type SendRequest struct {
	RecipientRef string
	Text         string
	MediaRef     string
}

// SendResult is what an adapter reports back.
type SendResult struct {
	Success     bool
	ExternalRef string
	Error       string
	Category    ErrorCategory
}

// Adapter is the contract every channel implementation satisfies.
type Adapter interface {
	Channel() domain.ChannelKind
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Registry resolves a ChannelKind to its configured Adapter, with one
// CircuitBreaker per channel so a carrier having an outage fails fast
// instead of every in-flight send blocking on its timeout.
type Registry struct {
	adapters map[domain.ChannelKind]Adapter

	mu       sync.Mutex
	breakers map[domain.ChannelKind]*resilience.CircuitBreaker
}

// NewRegistry builds a Registry from a set of adapters, keyed by their own
// Channel().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[domain.ChannelKind]Adapter, len(adapters)),
		breakers: make(map[domain.ChannelKind]*resilience.CircuitBreaker, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Channel()] = a
	}
	return r
}

// Get returns the Adapter registered for k, and false if none is.
func (r *Registry) Get(k domain.ChannelKind) (Adapter, bool) {
	a, ok := r.adapters[k]
	return a, ok
}

// breakerFor returns this channel's CircuitBreaker, creating it on first use.
func (r *Registry) breakerFor(k domain.ChannelKind) *resilience.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[k]
	if !ok {
		cb = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(string(k)))
		r.breakers[k] = cb
	}
	return cb
}

// Send invokes the adapter registered for k through its CircuitBreaker. A
// missing adapter is a validation failure, not a transport call (reported
// via the bool return); an open circuit is reported as a transport failure,
// since from the caller's perspective both mean "this channel could not be
// reached right now".
func (r *Registry) Send(ctx context.Context, k domain.ChannelKind, req SendRequest) (SendResult, bool) {
	adapter, ok := r.Get(k)
	if !ok {
		return SendResult{}, false
	}

	var result SendResult
	cb := r.breakerFor(k)
	err := cb.Execute(ctx, func(ctx context.Context) error {
		res, sendErr := adapter.Send(ctx, req)
		if sendErr != nil {
			result = SendResult{Error: sendErr.Error(), Category: ErrorCategoryTransport}
			return sendErr
		}
		result = res
		if !res.Success && res.Category == ErrorCategoryTransport {
			return errors.New(errors.CodeUnavailable, res.Error, nil)
		}
		return nil
	})
	if err == resilience.ErrCircuitOpen {
		result = SendResult{Error: err.Error(), Category: ErrorCategoryTransport}
	}
	return result, true
}

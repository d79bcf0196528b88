// Package memory provides fake ChannelAdapter implementations for tests:
// each records every Send call and returns a scripted SendResult.
package memory

import (
	"context"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/google/uuid"
)

// Adapter is a fake channel.Adapter that records calls and returns a
// configurable, optionally per-invocation, result.
type Adapter struct {
	kind   domain.ChannelKind
	result func(channel.SendRequest) channel.SendResult

	mu    sync.Mutex
	calls []channel.SendRequest
}

// New constructs a fake Adapter for kind that always succeeds, unless
// overridden with WithResult.
func New(kind domain.ChannelKind) *Adapter {
	return &Adapter{
		kind: kind,
		result: func(channel.SendRequest) channel.SendResult {
			return channel.SendResult{Success: true, ExternalRef: uuid.New().String()}
		},
	}
}

// WithResult overrides the scripted response function.
func (a *Adapter) WithResult(fn func(channel.SendRequest) channel.SendResult) *Adapter {
	a.result = fn
	return a
}

func (a *Adapter) Channel() domain.ChannelKind { return a.kind }

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()
	return a.result(req), nil
}

// Calls returns every SendRequest this adapter has received, in order.
func (a *Adapter) Calls() []channel.SendRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]channel.SendRequest, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallCount returns the number of times Send has been invoked.
func (a *Adapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

var _ channel.Adapter = (*Adapter)(nil)

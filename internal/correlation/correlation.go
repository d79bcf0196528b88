// Package correlation propagates a per-logical-request trace identifier
// through command execution, event payloads, and Worker processing (§4.11).
//
// The source generates this id at the HTTP edge using a dynamically scoped
// variable; that pattern has no equivalent here, so the id rides an
// explicit context.Context value instead (§9's "ambient per-request
// identifier" design note, option (a)). CommandService.Schedule keeps the
// id carried by its caller's context and mints a fresh one when there is
// none; Dispatcher and Worker restore the id stored on the message or event
// as-is, without synthesizing one when it is empty.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithID returns a context carrying id as the active correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id carried by ctx, and false if none
// is present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// IDOrNew returns the correlation id carried by ctx, synthesizing a fresh
// one if absent. CommandService.Schedule uses it to stamp new messages.
func IDOrNew(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// New mints a fresh correlation id, regardless of what any context carries.
func New() string {
	return uuid.New().String()
}

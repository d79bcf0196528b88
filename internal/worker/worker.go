// Package worker implements Worker (§4.8): consumes scheduling events,
// enforces at-most-once processing per (message, channels) via
// IdempotencyIndex, and drives one message through ChannelRouter and back
// into MessageStore.
package worker

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/correlation"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/idempotency"
	"github.com/chris-alexander-pop/system-design-library/internal/router"
	"github.com/chris-alexander-pop/system-design-library/internal/statemachine"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Worker drains an EventLog and turns each scheduling event into a
// ChannelRouter.Publish call plus per-channel MarkDelivery writes.
type Worker struct {
	store   store.MessageStore
	idx     *idempotency.Index
	router  router.Router
	tracer  trace.Tracer
}

// New constructs a Worker over the given store, idempotency index, and
// channel router.
func New(s store.MessageStore, idx *idempotency.Index, r router.Router) *Worker {
	return &Worker{store: s, idx: idx, router: r, tracer: otel.Tracer("internal/worker")}
}

// Run blocks, consuming l until ctx is canceled.
func (w *Worker) Run(ctx context.Context, l eventlog.EventLog) error {
	return l.Consume(ctx, w.handle)
}

// handle processes one scheduling event end to end. Returning an error
// leaves the underlying broker record unacknowledged; on a broker that
// redelivers, the idempotency index's staleness window (§4.8) then allows
// a retry. The in-memory broker does not redeliver, so there the event is
// dropped.
func (w *Worker) handle(ctx context.Context, event eventlog.Event) error {
	ctx = correlation.WithID(ctx, event.CorrelationID)
	ctx, span := w.tracer.Start(ctx, "worker.handle", trace.WithAttributes(
		attribute.String("message.id", event.Payload.MessageID),
	))
	defer span.End()

	channels := make([]domain.ChannelKind, len(event.Payload.Channels))
	for i, c := range event.Payload.Channels {
		channels[i] = domain.ChannelKind(c)
	}
	key := idempotency.Key(event.Payload.MessageID, channels)

	decision, err := w.idx.CheckAndLock(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	switch decision {
	case idempotency.DecisionSkipCompleted, idempotency.DecisionSkipProcessing:
		span.SetAttributes(attribute.String("worker.decision", string(decision)))
		return nil
	}

	msg, found, err := w.store.Get(ctx, event.Payload.MessageID)
	if err != nil {
		return err
	}
	if !found {
		logger.L().ErrorContext(ctx, "scheduling event for unknown message", "message_id", event.Payload.MessageID)
		return w.idx.Fail(ctx, key, "message not found")
	}

	next, err := statemachine.Claim(msg.Status)
	if err == nil {
		msg.Status = next
		msg.Touch(time.Now().UTC())
		if err := w.store.Save(ctx, msg); err != nil {
			return err
		}
	}
	// A non-nil err here means the message was already Processing or beyond
	// (e.g. a prior attempt got partway through); that's expected under
	// redelivery and is not itself a failure.

	result, err := w.router.Publish(ctx, router.PublishRequest{
		Text:         msg.Content.Text(),
		MediaRef:     msg.Content.MediaRef(),
		RecipientRef: msg.RecipientRef,
		Channels:     msg.TargetChannels,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		_ = w.idx.Fail(ctx, key, err.Error())
		return err
	}

	now := time.Now().UTC()
	for _, outcome := range result.Outcomes {
		status := domain.DeliveryFailed
		if outcome.Success {
			status = domain.DeliveryDelivered
		}
		markErr := w.store.MarkDelivery(ctx, msg.ID, outcome.Channel, store.DeliveryOutcome{
			Status:      status,
			ExternalRef: outcome.ExternalRef,
			Error:       outcome.Error,
			At:          now,
		})
		if markErr != nil {
			logger.L().ErrorContext(ctx, "failed to record delivery outcome", "message_id", msg.ID, "channel", outcome.Channel, "error", markErr)
		}
	}

	return w.idx.Complete(ctx, key)
}

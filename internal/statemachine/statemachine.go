// Package statemachine holds the pure transition logic for Message and
// Delivery status (§4.9). Every function here is side-effect free: callers
// (MessageStore, Worker) are responsible for persisting the result.
package statemachine

import (
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// Schedule transitions a Draft message to Scheduled. Any other origin status
// is rejected as an Invariant violation.
func Schedule(status domain.MessageStatus) (domain.MessageStatus, error) {
	if status != domain.StatusDraft {
		return status, errors.New(errors.CodeInternal, "schedule() requires Draft origin, got "+string(status), nil)
	}
	return domain.StatusScheduled, nil
}

// Claim transitions a Scheduled message to Processing on a successful
// Dispatcher claim.
func Claim(status domain.MessageStatus) (domain.MessageStatus, error) {
	if status != domain.StatusScheduled {
		return status, errors.New(errors.CodeInternal, "claim requires Scheduled origin, got "+string(status), nil)
	}
	return domain.StatusProcessing, nil
}

// TransitionDelivery moves a Delivery from Pending to a terminal state. No
// resurrection: a Delivery already Delivered or Failed cannot transition
// again.
func TransitionDelivery(d *domain.Delivery, outcome domain.DeliveryStatus, externalRef, errMsg string, at time.Time) error {
	if d.Status.Terminal() {
		return errors.New(errors.CodeInternal, "delivery already terminal, refusing re-write", nil)
	}
	switch outcome {
	case domain.DeliveryDelivered:
		return d.MarkDelivered(externalRef, at)
	case domain.DeliveryFailed:
		return d.MarkFailed(errMsg)
	default:
		return errors.New(errors.CodeInternal, "delivery transitions must target Delivered or Failed", nil)
	}
}

// DeriveMessageStatus computes the aggregate Message.status as a pure
// function of the current status and the multiset of Delivery statuses
// (I2, §4.9). It never regresses a terminal message and only recomputes
// while the message is Processing.
func DeriveMessageStatus(current domain.MessageStatus, deliveries []domain.Delivery) domain.MessageStatus {
	if current != domain.StatusProcessing {
		return current
	}

	var delivered, failed, pending int
	for _, d := range deliveries {
		switch d.Status {
		case domain.DeliveryDelivered:
			delivered++
		case domain.DeliveryFailed:
			failed++
		default:
			pending++
		}
	}

	switch {
	case pending > 0:
		return domain.StatusProcessing
	case delivered > 0 && failed == 0:
		return domain.StatusDelivered
	case failed > 0 && delivered == 0:
		return domain.StatusFailed
	case delivered > 0 && failed > 0:
		return domain.StatusPartiallyDelivered
	default:
		// No deliveries at all: treat as failed rather than silently
		// stranding the message in Processing forever.
		return domain.StatusFailed
	}
}

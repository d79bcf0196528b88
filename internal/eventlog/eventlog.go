// Package eventlog implements EventLog (§4.3, §6.2): an ordered,
// partitioned, at-least-once stream of scheduling events, keyed by
// message_id so all events for one message are strictly ordered relative
// to each other.
//
// It is a thin domain layer over pkg/messaging.Broker: ordering, consumer
// groups and any redelivery come from the broker. Concrete brokers live in
// pkg/messaging/adapters; the in-memory broker, the only one in this tree,
// has no offset tracking and does not redeliver.
package eventlog

import (
	"context"
	"encoding/json"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/messaging"
)

// Topic is the single topic scheduling events are published to; partition
// key (message_id) determines shard, not topic.
const Topic = "scheduling-events"

// ConsumerGroup is the shared group name Worker replicas join so the
// broker load-balances shards across them (§4.8).
const ConsumerGroup = "delivery-worker"

// EventType is the closed set of reserved event types (§6.2).
type EventType string

const (
	EventMessageScheduled       EventType = "message.scheduled"
	EventCertificationSubmitted EventType = "certification.submitted"
)

// Payload is the event body: just enough to re-drive processing, since no
// field beyond message_id and channels is load-bearing for correctness —
// the Worker re-reads state from MessageStore (§4.3).
type Payload struct {
	MessageID string   `json:"message_id"`
	Channels  []string `json:"channels"`
}

// Event is the full wire record (§6.2).
type Event struct {
	EventType     EventType `json:"event_type"`
	Payload       Payload   `json:"payload"`
	CorrelationID string    `json:"correlation_id"`
}

// Handler processes one consumed Event. Returning an error leaves the
// underlying broker message unacknowledged; the in-memory broker drops
// such a message instead of redelivering it.
type Handler func(ctx context.Context, event Event) error

// EventLog is the domain-facing publish/consume contract.
type EventLog interface {
	// Publish writes event to the log, partitioned by partitionKey so all
	// events sharing it are strictly ordered relative to each other.
	Publish(ctx context.Context, partitionKey string, event Event) error

	// Consume blocks, invoking handler for every event delivered to this
	// process's shard assignment, until ctx is canceled.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}

// log adapts any pkg/messaging.Broker into an EventLog.
type log struct {
	broker   messaging.Broker
	producer messaging.Producer
}

// New wraps broker as an EventLog over the fixed scheduling-events topic.
func New(broker messaging.Broker) (EventLog, error) {
	producer, err := broker.Producer(Topic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open scheduling-events producer")
	}
	return &log{broker: broker, producer: producer}, nil
}

func (l *log) Publish(ctx context.Context, partitionKey string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scheduling event")
	}
	return l.producer.Publish(ctx, &messaging.Message{
		Topic:   Topic,
		Key:     []byte(partitionKey),
		Payload: payload,
		Headers: map[string]string{"event_type": string(event.EventType)},
	})
}

func (l *log) Consume(ctx context.Context, handler Handler) error {
	consumer, err := l.broker.Consumer(Topic, ConsumerGroup)
	if err != nil {
		return errors.Wrap(err, "failed to open scheduling-events consumer")
	}
	defer consumer.Close()

	return consumer.Consume(ctx, func(ctx context.Context, msg *messaging.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return errors.Wrap(err, "failed to unmarshal scheduling event")
		}
		return handler(ctx, event)
	})
}

func (l *log) Close() error {
	return l.producer.Close()
}

var _ EventLog = (*log)(nil)

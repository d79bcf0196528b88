// Package memory provides an in-process messaging.Broker for tests and
// single-process deployments. Each topic is an ordered, buffered channel
// fanned out to every consumer group registered for it.
package memory

import (
	"context"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/messaging"
	"github.com/google/uuid"
)

// Config configures the in-memory broker.
type Config struct {
	// BufferSize is the per-(topic,group) channel capacity.
	BufferSize int
}

// Broker is an in-process implementation of messaging.Broker.
type Broker struct {
	cfg Config

	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

type topic struct {
	mu     sync.Mutex
	groups map[string]chan *messaging.Message
}

// New creates a new in-memory broker.
func New(cfg Config) *Broker {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Broker{cfg: cfg, topics: make(map[string]*topic)}
}

func (b *Broker) topicFor(name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = &topic{groups: make(map[string]chan *messaging.Message)}
		b.topics[name] = t
	}
	return t
}

func (b *Broker) Producer(topicName string) (messaging.Producer, error) {
	return &producer{broker: b, topic: topicName}, nil
}

func (b *Broker) Consumer(topicName string, group string) (messaging.Consumer, error) {
	if group == "" {
		group = uuid.New().String()
	}
	t := b.topicFor(topicName)

	t.mu.Lock()
	ch, ok := t.groups[group]
	if !ok {
		ch = make(chan *messaging.Message, b.cfg.BufferSize)
		t.groups[group] = ch
	}
	t.mu.Unlock()

	return &consumer{ch: ch}, nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		t.mu.Lock()
		for _, ch := range t.groups {
			close(ch)
		}
		t.mu.Unlock()
	}
	return nil
}

func (b *Broker) Healthy(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

type producer struct {
	broker *Broker
	topic  string
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	t := p.broker.topicFor(p.topic)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.groups {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	for _, m := range msgs {
		if err := p.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	ch chan *messaging.Message
}

func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.ch:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg); err != nil {
				// at-least-once: the in-memory broker has no redelivery queue,
				// so a failed handler simply drops the message; callers that
				// need redelivery should nack by republishing themselves.
				continue
			}
		}
	}
}

func (c *consumer) Close() error { return nil }

var _ messaging.Broker = (*Broker)(nil)

/*
Package messaging provides a unified abstraction layer for message brokers.

This package defines the core interfaces for producing and consuming
messages; only the in-process memory adapter is wired in this tree.

# Architecture

The package follows the adapter pattern with decoupled dependencies:
  - Core interfaces are defined here (zero external dependencies)
  - Each adapter lives in its own sub-package (pkg/messaging/adapters/{driver})
  - Users import only the adapter they need, pulling only that SDK

# Usage

	import (
	    "github.com/chris-alexander-pop/system-design-library/pkg/messaging"
	    "github.com/chris-alexander-pop/system-design-library/pkg/messaging/adapters/memory"
	)

	// Create an in-process broker
	broker := memory.New(memory.Config{BufferSize: 256})

	// Create a producer
	producer, err := broker.Producer("my-topic")
	defer producer.Close()

	// Publish a message
	err = producer.Publish(ctx, &messaging.Message{
	    ID:      uuid.New().String(),
	    Topic:   "my-topic",
	    Payload: []byte(`{"event": "user.created"}`),
	})
*/
package messaging

// Command dispatcher runs the periodic sweep that claims due Messages
// and publishes one scheduling event per claim (§4.2).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chris-alexander-pop/system-design-library/internal/config"
	"github.com/chris-alexander-pop/system-design-library/internal/dispatcher"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	appconfig "github.com/chris-alexander-pop/system-design-library/pkg/config"
	"github.com/chris-alexander-pop/system-design-library/pkg/database/sql/adapters/postgres"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"github.com/chris-alexander-pop/system-design-library/pkg/messaging"
	memorybroker "github.com/chris-alexander-pop/system-design-library/pkg/messaging/adapters/memory"
	"github.com/chris-alexander-pop/system-design-library/pkg/telemetry"
)

func main() {
	var cfg config.Dispatcher
	if err := appconfig.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.Logger)
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	messageStore, err := buildStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to build message store: %v", err)
	}

	broker, err := buildBroker(cfg.Messaging)
	if err != nil {
		log.Fatalf("failed to build broker: %v", err)
	}
	eventLog, err := eventlog.New(broker)
	if err != nil {
		log.Fatalf("failed to build event log: %v", err)
	}

	d := dispatcher.New(messageStore, eventLog, cfg.Dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.L().Info("dispatcher starting", "poll_interval", cfg.Dispatcher.PollInterval)
	d.Run(ctx)
	logger.L().Info("dispatcher stopped")
}

func buildStore(cfg config.Store) (store.MessageStore, error) {
	if cfg.Driver == "postgres" {
		sqlAdapter, err := postgres.New(cfg.SQL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to postgres")
		}
		return store.NewGormStore(sqlAdapter)
	}
	return store.NewMemoryStore(), nil
}

func buildBroker(cfg config.Messaging) (messaging.Broker, error) {
	// Kafka wiring is deferred: the teacher's pkg/messaging/adapters/kafka
	// only implements Producer, not a full Broker, so every deployment runs
	// the in-memory broker until that adapter grows a Consumer/Broker type.
	return memorybroker.New(memorybroker.Config{BufferSize: cfg.MemoryBufferSize}), nil
}

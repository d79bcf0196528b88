// Command worker drains scheduling events and drives each one through
// ChannelRouter (with ContentGuardrail on the AI-augmented path) and back
// into MessageStore (§4.8).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/email"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/facebook"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/instagram"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/linkedin"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/sms"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/whatsapp"
	"github.com/chris-alexander-pop/system-design-library/internal/config"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/guardrail"
	"github.com/chris-alexander-pop/system-design-library/internal/idempotency"
	"github.com/chris-alexander-pop/system-design-library/internal/router"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	"github.com/chris-alexander-pop/system-design-library/internal/worker"
	"github.com/chris-alexander-pop/system-design-library/pkg/ai/genai/llm"
	"github.com/chris-alexander-pop/system-design-library/pkg/ai/genai/llm/adapters/openai"
	cachepkg "github.com/chris-alexander-pop/system-design-library/pkg/cache"
	cachememory "github.com/chris-alexander-pop/system-design-library/pkg/cache/adapters/memory"
	cacheredis "github.com/chris-alexander-pop/system-design-library/pkg/cache/adapters/redis"
	"github.com/chris-alexander-pop/system-design-library/pkg/client/rest"
	appconfig "github.com/chris-alexander-pop/system-design-library/pkg/config"
	"github.com/chris-alexander-pop/system-design-library/pkg/database/sql/adapters/postgres"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"github.com/chris-alexander-pop/system-design-library/pkg/messaging"
	memorybroker "github.com/chris-alexander-pop/system-design-library/pkg/messaging/adapters/memory"
	"github.com/chris-alexander-pop/system-design-library/pkg/telemetry"
)

func main() {
	var cfg config.Worker
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

	cache, err := buildCache(cfg.Cache)
	if err != nil {
		log.Fatalf("failed to build cache: %v", err)
	}
	idx := idempotency.New(cache, cfg.Idempotency)

	registry, err := buildChannelRegistry(cfg.Channels, cfg.RestClient)
	if err != nil {
		log.Fatalf("failed to build channel registry: %v", err)
	}
	r := buildRouter(cfg, registry)

	w := worker.New(messageStore, idx, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.L().Info("worker starting")
	if err := w.Run(ctx, eventLog); err != nil && ctx.Err() == nil {
		logger.L().Error("worker stopped with error", "error", err)
	}
	logger.L().Info("worker stopped")
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
	return memorybroker.New(memorybroker.Config{BufferSize: cfg.MemoryBufferSize}), nil
}

// buildCache backs the idempotency index's CheckAndLock (§4.4) with either an
// in-process map or a shared Redis instance; only the latter lets CheckAndLock
// dedupe (message, channel set) pairs across more than one worker process.
func buildCache(cfg cachepkg.Config) (cachepkg.Cache, error) {
	if cfg.Driver == "redis" {
		c, err := cacheredis.New(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build redis cache")
		}
		return c, nil
	}
	return cachememory.New(), nil
}

// buildChannelRegistry wires every ChannelAdapter that has credentials
// configured; a channel with no credentials is simply absent from the
// registry, and sendOne (internal/router) reports it as a validation
// failure rather than the process refusing to start.
func buildChannelRegistry(cfg config.ChannelAdapters, restCfg rest.Config) (*channel.Registry, error) {
	// Channel adapters do not retry internally (internal/channel), so the
	// REST client they share is built with retries disabled.
	restCfg.Retries = 0

	var adapters []channel.Adapter

	if cfg.SMS.AccountSID != "" {
		a, err := sms.New(cfg.SMS)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build sms adapter")
		}
		adapters = append(adapters, a)
	}
	if cfg.WhatsApp.AccountSID != "" {
		a, err := whatsapp.New(cfg.WhatsApp)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build whatsapp adapter")
		}
		adapters = append(adapters, a)
	}
	if cfg.Email.APIKey != "" {
		a, err := email.New(cfg.Email)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build email adapter")
		}
		adapters = append(adapters, a)
	}
	if cfg.Facebook.AccessToken != "" {
		a, err := facebook.New(cfg.Facebook, restCfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build facebook adapter")
		}
		adapters = append(adapters, a)
	}
	if cfg.Instagram.AccessToken != "" {
		a, err := instagram.New(cfg.Instagram, restCfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build instagram adapter")
		}
		adapters = append(adapters, a)
	}
	if cfg.LinkedIn.AccessToken != "" {
		a, err := linkedin.New(cfg.LinkedIn, restCfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build linkedin adapter")
		}
		adapters = append(adapters, a)
	}
	return channel.NewRegistry(adapters...), nil
}

func buildRouter(cfg config.Worker, registry *channel.Registry) router.Router {
	if !cfg.AI.Enabled {
		return router.NewDirectRouter(registry, 16)
	}
	var client llm.Client = openai.New(os.Getenv("OPENAI_API_KEY"))
	gr := guardrail.New(cfg.Guardrail.StrictMode)
	return router.NewAIRouter(registry, client, gr)
}

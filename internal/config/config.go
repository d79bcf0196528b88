// Package config assembles the per-process configuration structs for the
// intake, dispatcher, and worker roles, each loaded via pkg/config.Load.
package config

import (
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/email"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/facebook"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/instagram"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/linkedin"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/sms"
	"github.com/chris-alexander-pop/system-design-library/internal/channel/adapters/whatsapp"
	"github.com/chris-alexander-pop/system-design-library/internal/dispatcher"
	"github.com/chris-alexander-pop/system-design-library/internal/idempotency"
	"github.com/chris-alexander-pop/system-design-library/pkg/cache"
	"github.com/chris-alexander-pop/system-design-library/pkg/client/rest"
	dbsql "github.com/chris-alexander-pop/system-design-library/pkg/database/sql"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"github.com/chris-alexander-pop/system-design-library/pkg/telemetry"
)

// Store selects and configures the MessageStore backend.
type Store struct {
	Driver string       `env:"STORE_DRIVER" env-default:"memory"` // memory|postgres
	SQL    dbsql.Config `env-prefix:""`
}

// Messaging selects and configures the EventLog backend.
type Messaging struct {
	Driver         string `env:"MESSAGING_DRIVER" env-default:"memory"` // memory|kafka
	BrokerURL      string `env:"MESSAGING_BROKER_URL"`
	MemoryBufferSize int  `env:"MESSAGING_MEMORY_BUFFER_SIZE" env-default:"256"`
}

// Guardrail configures ContentGuardrail's strictness (§4.7).
type Guardrail struct {
	StrictMode bool `env:"GUARDRAIL_STRICT_MODE" env-default:"false"`
}

// AI switches the AI-augmented router on or off (§4.6). Model is not read:
// cmd/worker builds the OpenAI client with its built-in default model.
type AI struct {
	Enabled bool   `env:"AI_ROUTING_ENABLED" env-default:"false"`
	Model   string `env:"AI_ROUTING_MODEL" env-default:"gpt-4o-mini"`
}

// Intake is the config for cmd/intake: serves CommandService.
type Intake struct {
	Port      string           `env:"PORT" env-default:"8080"`
	Logger    logger.Config    `env-prefix:""`
	Telemetry telemetry.Config `env-prefix:""`
	Store     Store            `env-prefix:""`
	Messaging Messaging        `env-prefix:""`
}

// Dispatcher is the config for cmd/dispatcher.
type Dispatcher struct {
	Logger     logger.Config       `env-prefix:""`
	Telemetry  telemetry.Config    `env-prefix:""`
	Store      Store               `env-prefix:""`
	Messaging  Messaging           `env-prefix:""`
	Dispatcher dispatcher.Config   `env-prefix:""`
}

// Worker is the config for cmd/worker.
type Worker struct {
	Logger      logger.Config       `env-prefix:""`
	Telemetry   telemetry.Config    `env-prefix:""`
	Store       Store               `env-prefix:""`
	Messaging   Messaging           `env-prefix:""`
	Cache       cache.Config        `env-prefix:""`
	Idempotency idempotency.Config  `env-prefix:""`
	Guardrail   Guardrail           `env-prefix:""`
	AI          AI                  `env-prefix:""`
	Channels    ChannelAdapters     `env-prefix:""`
	RestClient  rest.Config         `env-prefix:""`
}

// ChannelAdapters composes every ChannelAdapter's own Config (§6.4); each
// embedded struct already carries its env tags and validator rules.
type ChannelAdapters struct {
	SMS       sms.Config       `env-prefix:""`
	WhatsApp  whatsapp.Config  `env-prefix:""`
	Email     email.Config     `env-prefix:""`
	Facebook  facebook.Config  `env-prefix:""`
	Instagram instagram.Config `env-prefix:""`
	LinkedIn  linkedin.Config  `env-prefix:""`
}

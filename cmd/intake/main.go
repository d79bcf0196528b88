// Command intake runs CommandService behind an HTTP API: schedule a new
// Message, fetch one back, or list supported channels.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/command"
	"github.com/chris-alexander-pop/system-design-library/internal/config"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/eventlog"
	"github.com/chris-alexander-pop/system-design-library/internal/store"
	appconfig "github.com/chris-alexander-pop/system-design-library/pkg/config"
	"github.com/chris-alexander-pop/system-design-library/pkg/database/sql/adapters/postgres"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
	"github.com/chris-alexander-pop/system-design-library/pkg/messaging"
	memorybroker "github.com/chris-alexander-pop/system-design-library/pkg/messaging/adapters/memory"
	"github.com/chris-alexander-pop/system-design-library/pkg/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	var cfg config.Intake
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

	svc := command.New(messageStore, eventLog)

	mux := http.NewServeMux()
	mux.HandleFunc("/messages", scheduleHandler(svc))
	mux.HandleFunc("/messages/", getHandler(svc))
	mux.HandleFunc("/channels", listChannelsHandler(svc))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(mux, "intake"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L().Info("intake listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Error("intake server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("intake shutdown error", "error", err)
	}
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

type scheduleBody struct {
	OwnerID        string   `json:"owner_id"`
	Text           string   `json:"text"`
	MediaRef       string   `json:"media_ref"`
	RecipientRef   string   `json:"recipient_ref"`
	TargetChannels []string `json:"target_channels"`
	ScheduledAt    string   `json:"scheduled_at"`
}

func scheduleHandler(svc *command.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body scheduleBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errors.InvalidArgument("malformed request body", err))
			return
		}
		scheduledAt, err := time.Parse(time.RFC3339, body.ScheduledAt)
		if err != nil {
			writeError(w, errors.InvalidArgument("scheduled_at must be RFC3339", err))
			return
		}
		channels := make([]domain.ChannelKind, len(body.TargetChannels))
		for i, c := range body.TargetChannels {
			channels[i] = domain.ChannelKind(c)
		}
		m, err := svc.Schedule(r.Context(), command.ScheduleRequest{
			OwnerID:        body.OwnerID,
			Text:           body.Text,
			MediaRef:       body.MediaRef,
			RecipientRef:   body.RecipientRef,
			TargetChannels: channels,
			ScheduledAt:    scheduledAt,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func getHandler(svc *command.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/messages/"):]
		ownerID := r.Header.Get("X-Owner-ID")
		m, err := svc.Get(r.Context(), ownerID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func listChannelsHandler(svc *command.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListChannelKinds(r.Context()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.Code(err) {
	case errors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeConflict:
		status = http.StatusConflict
	case errors.CodeForbidden:
		status = http.StatusForbidden
	case errors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

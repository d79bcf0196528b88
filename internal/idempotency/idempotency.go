// Package idempotency implements IdempotencyIndex (§3, §4.8): a content-
// addressed record that prevents the Worker from double-processing a
// (message_id, sorted channels) pair under at-least-once event redelivery.
//
// It is built on pkg/cache.Cache rather than a bespoke store, so the same
// code backs both the in-memory (single-replica) and Redis (multi-replica)
// deployments described in §5's "process-wide idempotency cache" trade-off
// note — swap the Cache adapter, not this package.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/pkg/cache"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// Status is the lifecycle of one IdempotencyRecord.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the persisted idempotency entry (§3).
type Record struct {
	Key         string
	Status      Status
	CreatedAt   time.Time
	CompletedAt time.Time
	Error       string
}

// Decision is what the Worker should do after CheckAndLock.
type Decision string

const (
	DecisionProceed        Decision = "proceed"         // fresh lock acquired, process the event
	DecisionSkipCompleted  Decision = "skip_completed"   // already done, ack with zero side effects
	DecisionSkipProcessing Decision = "skip_processing" // another attempt is live and fresh
)

// Config tunes the TTL and staleness window from §6.4.
type Config struct {
	TTL           time.Duration `env:"IDEMPOTENCY_TTL_SECONDS" env-default:"86400s"`
	StaleAfter    time.Duration `env:"IDEMPOTENCY_STALE_SECONDS" env-default:"300s"`
}

// Index is the IdempotencyIndex implementation, backed by any pkg/cache.Cache.
type Index struct {
	cache cache.Cache
	cfg   Config
}

// New constructs an Index over the given cache backend.
func New(c cache.Cache, cfg Config) *Index {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	return &Index{cache: c, cfg: cfg}
}

// Key computes the content-addressed idempotency key for (message_id,
// sorted channels), per §3's glossary definition.
func Key(messageID string, channels []domain.ChannelKind) string {
	sorted := append([]domain.ChannelKind(nil), channels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = string(c)
	}
	material := messageID + "|" + strings.Join(parts, ",")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// CheckAndLock implements the §4.8 step 3 decision table. It is
// best-effort, not compare-and-swap: pkg/cache.Cache exposes no atomic
// "set if absent" primitive, so two workers racing on the same fresh key
// could both observe DecisionProceed. In production this narrows to the
// last-write-wins window between Get and Set. Within that window both
// workers go on to call the router, so a channel can receive the message
// twice; mark_delivery's terminal-write check (I3) only keeps the second
// recorded outcome from overwriting the first.
func (i *Index) CheckAndLock(ctx context.Context, key string) (Decision, error) {
	var existing Record
	err := i.cache.Get(ctx, cacheKey(key), &existing)
	switch {
	case err == nil:
		switch existing.Status {
		case StatusCompleted:
			return DecisionSkipCompleted, nil
		case StatusProcessing:
			if time.Since(existing.CreatedAt) < i.cfg.StaleAfter {
				return DecisionSkipProcessing, nil
			}
			// Stale: assume the prior processor crashed, reacquire.
		case StatusFailed:
			// Retryable: fall through to reacquire.
		}
	case errors.Code(err) != errors.CodeNotFound:
		return "", err
	}

	record := Record{Key: key, Status: StatusProcessing, CreatedAt: time.Now().UTC()}
	if err := i.cache.Set(ctx, cacheKey(key), record, i.cfg.TTL); err != nil {
		return "", err
	}
	return DecisionProceed, nil
}

// Complete marks key's record Completed.
func (i *Index) Complete(ctx context.Context, key string) error {
	record := Record{Key: key, Status: StatusCompleted, CompletedAt: time.Now().UTC()}
	return i.cache.Set(ctx, cacheKey(key), record, i.cfg.TTL)
}

// Fail marks key's record Failed with reason, allowing re-acquisition.
func (i *Index) Fail(ctx context.Context, key string, reason string) error {
	record := Record{Key: key, Status: StatusFailed, CompletedAt: time.Now().UTC(), Error: reason}
	return i.cache.Set(ctx, cacheKey(key), record, i.cfg.TTL)
}

func cacheKey(key string) string {
	return "idempotency:" + key
}

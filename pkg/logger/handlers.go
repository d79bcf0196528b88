package logger

import (
	"context"
	"log/slog"
	"math/rand"
	"regexp"
	"sync"
)

// AsyncHandler buffers records and writes them from a single background
// goroutine so that callers never block on slow sinks.
type AsyncHandler struct {
	next    slog.Handler
	ch      chan slog.Record
	dropped bool
	once    sync.Once
}

// NewAsyncHandler wraps next with a bounded buffer of the given size. When
// dropOnFull is true, records are discarded rather than blocking the caller
// once the buffer is full; otherwise the caller blocks until space frees up.
func NewAsyncHandler(next slog.Handler, bufSize int, dropOnFull bool) *AsyncHandler {
	h := &AsyncHandler{
		next:    next,
		ch:      make(chan slog.Record, bufSize),
		dropped: dropOnFull,
	}
	go h.run()
	return h
}

func (h *AsyncHandler) run() {
	for r := range h.ch {
		_ = h.next.Handle(context.Background(), r)
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.dropped {
		select {
		case h.ch <- r:
		default:
			// buffer full, drop the record rather than blocking the caller
		}
		return nil
	}
	h.ch <- r
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), ch: h.ch, dropped: h.dropped}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), ch: h.ch, dropped: h.dropped}
}

// SamplingHandler passes through a fraction of records, always letting
// warnings and errors through regardless of the sampling rate.
type SamplingHandler struct {
	next slog.Handler
	rate float64
}

func NewSamplingHandler(next slog.Handler, rate float64) *SamplingHandler {
	return &SamplingHandler{next: next, rate: rate}
}

func (h *SamplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SamplingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn || rand.Float64() < h.rate {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *SamplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SamplingHandler{next: h.next.WithAttrs(attrs), rate: h.rate}
}

func (h *SamplingHandler) WithGroup(name string) slog.Handler {
	return &SamplingHandler{next: h.next.WithGroup(name), rate: h.rate}
}

var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),              // SSN-like
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),             // credit-card-like
	regexp.MustCompile(`\b\+?[1-9]\d{1,14}\b`),                // phone-like (E.164)
}

// RedactHandler masks attribute values that look like PII before they reach
// the underlying sink.
type RedactHandler struct {
	next slog.Handler
}

func NewRedactHandler(next slog.Handler) *RedactHandler {
	return &RedactHandler{next: next}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	s := a.Value.String()
	for _, re := range redactPatterns {
		if re.MatchString(s) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RedactHandler{next: h.next.WithAttrs(attrs)}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{next: h.next.WithGroup(name)}
}

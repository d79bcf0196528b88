package router

import (
	"context"
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/pkg/concurrency"
)

// DirectRouter spawns one concurrent task per channel and calls the
// corresponding ChannelAdapter with the verbatim content, bounded by a
// semaphore so a request with many channels never unboundedly fans out.
type DirectRouter struct {
	registry    *channel.Registry
	concurrency int64
}

// NewDirectRouter constructs a DirectRouter. maxConcurrency bounds how many
// channel sends run at once per request; zero or negative selects a
// generous default.
func NewDirectRouter(registry *channel.Registry, maxConcurrency int64) *DirectRouter {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &DirectRouter{registry: registry, concurrency: maxConcurrency}
}

func (r *DirectRouter) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	start := time.Now()
	sem := concurrency.NewSemaphore(r.concurrency)

	outcomes := make([]ChannelOutcome, len(req.Channels))
	var wg sync.WaitGroup
	for i, c := range req.Channels {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = ChannelOutcome{Channel: c, Success: false, Error: err.Error(), Category: channel.ErrorCategoryTransport}
				return
			}
			defer sem.Release(1)

			outcomes[i] = sendOne(ctx, r.registry, c, channel.SendRequest{
				RecipientRef: req.RecipientRef,
				Text:         req.Text,
				MediaRef:     req.MediaRef,
			})
		}()
	}
	wg.Wait()

	return PublishResult{Outcomes: outcomes, Duration: time.Since(start)}, nil
}

var _ Router = (*DirectRouter)(nil)

package edit

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrCancelled is returned by Batch.Run when the batch was stopped before
// every iteration ran. Completed results are still returned.
var ErrCancelled = errors.New("batch cancelled")

// Batch runs a sequence of AI calls ("generate N variations"). Calls are
// paced by a rate limiter and the batch can be cancelled between calls; a
// call that already started always completes.
type Batch struct {
	limiter   *rate.Limiter
	cancelled atomic.Bool
	logger    *slog.Logger
}

// NewBatch creates a batch that issues at most one call per interval.
// A zero interval disables pacing.
func NewBatch(interval time.Duration, logger *slog.Logger) *Batch {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Batch{
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Cancel stops the batch before its next call.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (b *Batch) Cancelled() bool {
	return b.cancelled.Load()
}

// Run calls fn n times in order. It stops early on cancellation (Cancel or
// ctx) with ErrCancelled, or on the first failure with a *ServiceError; in
// both cases the results gathered so far are returned.
func (b *Batch) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) (image.Image, error)) ([]image.Image, error) {
	results := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if b.Cancelled() || ctx.Err() != nil {
			b.logger.Info("batch cancelled", "completed", len(results), "requested", n)
			return results, ErrCancelled
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return results, ErrCancelled
		}
		if b.Cancelled() {
			return results, ErrCancelled
		}

		img, err := fn(context.WithoutCancel(ctx), i)
		if err != nil {
			b.logger.Warn("batch call failed", "index", i, "error", err)
			return results, newServiceError("variation", err)
		}
		results = append(results, img)
		b.logger.Debug("batch call done", "index", i)
	}
	return results, nil
}

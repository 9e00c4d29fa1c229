package worker

import (
	"context"
	"log/slog"
)

// Pool is a counting permit gate bounding how many heavy transcription
// calls run at once. Both the batch job processor and streaming sessions
// acquire from the same pool, so true parallelism never exceeds the permit
// count regardless of how many jobs are queued.
type Pool struct {
	permits chan struct{}
	logger  *slog.Logger
}

// NewPool creates a pool with maxWorkers permits.
func NewPool(maxWorkers int, logger *slog.Logger) *Pool {
	return &Pool{
		permits: make(chan struct{}, maxWorkers),
		logger:  logger,
	}
}

// Acquire blocks until a permit is free or ctx is cancelled. A cancelled
// acquire never consumes a permit. Every successful Acquire must be paired
// with exactly one Release; callers defer the release immediately so the
// permit is returned on every exit path.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.permits <- struct{}{}:
		p.logger.Debug("Worker permit acquired",
			slog.Int("in_use", len(p.permits)),
			slog.Int("capacity", cap(p.permits)),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool.
func (p *Pool) Release() {
	select {
	case <-p.permits:
		p.logger.Debug("Worker permit released",
			slog.Int("in_use", len(p.permits)),
		)
	default:
		// Release without a matching Acquire is a programming error;
		// log it rather than block or corrupt the permit count.
		p.logger.Error("Worker permit released without acquire")
	}
}

// InUse returns the number of permits currently held.
func (p *Pool) InUse() int {
	return len(p.permits)
}

// Capacity returns the total permit count.
func (p *Pool) Capacity() int {
	return cap(p.permits)
}

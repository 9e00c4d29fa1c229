package reaper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/ledger"
)

// Reaper periodically evicts terminal jobs older than the retention window
// from the ledger. It never stops its own schedule on error; a sweep
// failure is logged and the next tick runs as usual.
type Reaper struct {
	ledger    *ledger.Ledger
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewReaper creates a reaper sweeping the ledger every interval.
func NewReaper(l *ledger.Ledger, interval, retention time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		ledger:    l,
		interval:  interval,
		retention: retention,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the background sweep loop. The loop exits when Stop is
// called or ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	r.logger.Info("Starting reaper",
		slog.Duration("interval", r.interval),
		slog.Duration("retention", r.retention),
	)

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop signals the sweep loop to exit and waits for it.
func (r *Reaper) Stop() {
	close(r.stopChan)
	r.wg.Wait()
	r.logger.Info("Reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ctx.Done():
			r.logger.Info("Reaper stopping - context canceled")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep removes terminal jobs older than the retention window. It
// snapshots matching ids first and removes them afterwards, so concurrent
// ledger mutation during the scan is safe.
func (r *Reaper) Sweep() {
	cutoff := time.Now().Add(-r.retention)
	ids := r.ledger.TerminalBefore(cutoff)

	for _, id := range ids {
		r.ledger.Remove(id)
	}

	if len(ids) > 0 {
		r.logger.Info("Reaper evicted old jobs",
			slog.Int("evicted", len(ids)),
			slog.Int("remaining", r.ledger.Len()),
		)
	}
}

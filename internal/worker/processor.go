package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/ledger"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
)

// Config holds processor dependencies. Converter and engine are supplied
// as factories: they hold per-call resources, so the long-lived processor
// constructs a fresh instance per job instead of retaining one.
type Config struct {
	Ledger       *ledger.Ledger
	Pool         *Pool
	Artifacts    *storage.Store
	NewConverter transcribe.ConverterFactory
	NewEngine    transcribe.EngineFactory
	JobTimeout   time.Duration
	Logger       *slog.Logger
}

// Processor drives a single job from admission to a terminal state:
// convert, acquire permit, transcribe, release permit, finalize, cleanup.
type Processor struct {
	ledger       *ledger.Ledger
	pool         *Pool
	artifacts    *storage.Store
	newConverter transcribe.ConverterFactory
	newEngine    transcribe.EngineFactory
	jobTimeout   time.Duration
	logger       *slog.Logger
}

// NewProcessor creates a processor instance.
func NewProcessor(cfg *Config) *Processor {
	return &Processor{
		ledger:       cfg.Ledger,
		pool:         cfg.Pool,
		artifacts:    cfg.Artifacts,
		newConverter: cfg.NewConverter,
		newEngine:    cfg.NewEngine,
		jobTimeout:   cfg.JobTimeout,
		logger:       cfg.Logger,
	}
}

// Process runs the full pipeline for one job. All pipeline failures are
// recorded into the ledger as a failed terminal state; nothing is
// propagated back to the scheduler. Cleanup of both artifacts runs on
// every exit path and never alters the job's terminal status.
func (p *Processor) Process(ctx context.Context, jobID, inputPath string) {
	p.logger.Info("Processing job",
		slog.String("job_id", jobID),
		slog.String("input_path", inputPath),
	)

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	convertedPath := ""
	defer func() {
		p.cleanup(jobID, inputPath, convertedPath)
	}()

	p.ledger.UpdateStatus(jobID, domain.JobStatusProcessing, "", "")

	converter := p.newConverter()
	converted, err := converter.Convert(ctx, inputPath)
	if err != nil {
		p.logger.Error("Job conversion failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		p.ledger.UpdateStatus(jobID, domain.JobStatusFailed, "", err.Error())
		return
	}
	convertedPath = converted

	text, err := p.transcribeWithPermit(ctx, jobID, convertedPath)
	if err != nil {
		p.logger.Error("Job transcription failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		p.ledger.UpdateStatus(jobID, domain.JobStatusFailed, "", err.Error())
		return
	}

	// An engine can legitimately produce nothing, e.g. for silence.
	// Completed records carry a transcript, so that outcome is a failure.
	if strings.TrimSpace(text) == "" {
		p.ledger.UpdateStatus(jobID, domain.JobStatusFailed, "", "transcription produced no text")
		return
	}

	p.ledger.UpdateStatus(jobID, domain.JobStatusCompleted, text, "")

	p.logger.Info("Job completed successfully",
		slog.String("job_id", jobID),
	)
}

// transcribeWithPermit runs the heavy transcription call while holding a
// worker permit. The deferred release guarantees the permit is returned on
// every exit path, including cancellation mid-call.
func (p *Processor) transcribeWithPermit(ctx context.Context, jobID, audioPath string) (string, error) {
	if err := p.pool.Acquire(ctx); err != nil {
		return "", err
	}
	defer p.pool.Release()

	p.logger.Debug("Job acquired worker permit",
		slog.String("job_id", jobID),
		slog.Int("permits_in_use", p.pool.InUse()),
	)

	engine := p.newEngine()
	return engine.Transcribe(ctx, audioPath)
}

// cleanup removes the job's artifacts. Failures are logged only; a job
// that transcribed successfully but whose temp files failed to delete is
// still completed.
func (p *Processor) cleanup(jobID, inputPath, convertedPath string) {
	for _, path := range []string{inputPath, convertedPath} {
		if err := p.artifacts.Remove(path); err != nil {
			p.logger.Warn("Failed to clean up job artifact",
				slog.String("job_id", jobID),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}

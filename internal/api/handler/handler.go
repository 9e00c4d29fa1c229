package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/transcribe-service/internal/admission"
	"github.com/cuongbtq/transcribe-service/internal/ledger"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/stream"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
	"github.com/cuongbtq/transcribe-service/internal/worker"
)

// Dependencies holds all dependencies needed by handlers. BaseContext is
// the process-level context job goroutines run under, so in-flight work is
// cancelled on shutdown rather than tied to the originating request.
type Dependencies struct {
	Logger       *slog.Logger
	Ledger       *ledger.Ledger
	Admission    *admission.Controller
	Processor    *worker.Processor
	Pool         *worker.Pool
	Artifacts    *storage.Store
	NewConverter transcribe.ConverterFactory
	NewEngine    transcribe.EngineFactory
	StreamConfig stream.Config
	BaseContext  context.Context
}

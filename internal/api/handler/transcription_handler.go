package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/admission"
	"github.com/cuongbtq/transcribe-service/internal/api/dto"
	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/ledger"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
	"github.com/cuongbtq/transcribe-service/internal/worker"
	"github.com/gin-gonic/gin"
)

// allowedExtensions lists the upload formats ffmpeg is expected to handle.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

// TranscriptionHandler handles transcription job HTTP requests
type TranscriptionHandler struct {
	logger    *slog.Logger
	ledger    *ledger.Ledger
	admission *admission.Controller
	processor *worker.Processor
	artifacts *storage.Store
	newEngine transcribe.EngineFactory
	baseCtx   context.Context
}

// NewTranscriptionHandler creates a new TranscriptionHandler instance
func NewTranscriptionHandler(deps *Dependencies) *TranscriptionHandler {
	return &TranscriptionHandler{
		logger:    deps.Logger,
		ledger:    deps.Ledger,
		admission: deps.Admission,
		processor: deps.Processor,
		artifacts: deps.Artifacts,
		newEngine: deps.NewEngine,
		baseCtx:   deps.BaseContext,
	}
}

// CreateTranscription handles POST /api/v1/transcriptions
// Accepts an audio upload and schedules a background transcription job.
func (h *TranscriptionHandler) CreateTranscription(c *gin.Context) {
	h.logger.Info("CreateTranscription called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	file, err := c.FormFile("audio")
	if err != nil {
		h.logger.Error("Missing audio file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "audio file is required",
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported audio format: " + ext,
		})
		return
	}

	// Admission and job creation are one atomic step, so concurrent
	// uploads cannot exceed the queue bound between check and insert.
	jobID, err := h.admission.AdmitAndCreate()
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			h.logger.Warn("Job rejected at capacity",
				slog.Int("queued", h.admission.Snapshot().QueuedJobs),
				slog.Int("active", h.admission.Snapshot().ActiveJobs),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "server at capacity, retry later",
			})
			return
		}
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create job",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", slog.String("error", err.Error()))
		h.ledger.Remove(jobID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to read upload",
		})
		return
	}
	defer src.Close()

	inputPath, err := h.artifacts.Save(src, ext)
	if err != nil {
		h.logger.Error("Failed to store upload", slog.String("error", err.Error()))
		h.ledger.Remove(jobID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store upload",
		})
		return
	}

	// The job runs under the process context, not the request context:
	// the upload response returns immediately while processing continues.
	go h.processor.Process(h.baseCtx, jobID, inputPath)

	c.JSON(http.StatusAccepted, dto.CreateTranscriptionResponse{
		ID:     jobID,
		Status: domain.JobStatusPending,
	})
}

// GetTranscription handles GET /api/v1/transcriptions/:id
// Returns the current status of a job, with transcript or error once terminal.
func (h *TranscriptionHandler) GetTranscription(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.ledger.Get(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return
	}

	resp := dto.TranscriptionStatusResponse{
		ID:         job.ID,
		Status:     job.Status,
		Transcript: job.Transcript,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}
	if job.Terminal() {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// GetCapacity handles GET /api/v1/capacity
// Reports current load against the configured limits.
func (h *TranscriptionHandler) GetCapacity(c *gin.Context) {
	c.JSON(http.StatusOK, h.admission.Snapshot())
}

// Health handles GET /health
// Reports service liveness and transcription engine readiness.
func (h *TranscriptionHandler) Health(c *gin.Context) {
	engine := h.newEngine()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "transcribe-service",
		"engine": dto.EngineStatus{
			Loaded: engine.IsLoaded(),
			Model:  engine.ModelIdentifier(),
		},
	})
}

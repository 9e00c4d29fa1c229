package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
	"github.com/cuongbtq/transcribe-service/internal/worker"
)

// Message is one protocol frame emitted to a streaming client.
type Message struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Protocol message types
const (
	MessagePartial = "partial"
	MessageFinal   = "final"
	MessageError   = "error"
)

// Config holds the immutable buffer thresholds for a session.
type Config struct {
	MinTrigger int
	MaxSize    int
}

// Session accumulates audio bytes from one streaming connection and
// triggers transcription through the shared worker pool once the buffer
// reaches MinTrigger. A buffer exceeding MaxSize is a hard violation that
// terminates the session. Sessions never touch the job ledger; they only
// compete for worker permits.
type Session struct {
	cfg          Config
	pool         *worker.Pool
	artifacts    *storage.Store
	newConverter transcribe.ConverterFactory
	newEngine    transcribe.EngineFactory
	logger       *slog.Logger

	mu     sync.Mutex
	buffer []byte
	closed bool
}

// Dependencies holds the collaborators a session flush needs.
type Dependencies struct {
	Pool         *worker.Pool
	Artifacts    *storage.Store
	NewConverter transcribe.ConverterFactory
	NewEngine    transcribe.EngineFactory
	Logger       *slog.Logger
}

// NewSession creates an open session with an empty buffer.
func NewSession(cfg Config, deps *Dependencies) *Session {
	return &Session{
		cfg:          cfg,
		pool:         deps.Pool,
		artifacts:    deps.Artifacts,
		newConverter: deps.NewConverter,
		newEngine:    deps.NewEngine,
		logger:       deps.Logger,
	}
}

// Push appends a chunk to the buffer. It returns a protocol message when
// the chunk produced one: an error message plus ErrBufferOverflow when the
// buffer limit is exceeded (the session closes), a partial message after a
// successful flush, or an error message after a failed flush (the session
// stays open and keeps its buffer so a later chunk can retry).
func (s *Session) Push(ctx context.Context, chunk []byte) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSessionClosed
	}

	s.buffer = append(s.buffer, chunk...)

	if len(s.buffer) > s.cfg.MaxSize {
		s.closed = true
		s.logger.Warn("Stream buffer overflow",
			slog.Int("buffer_size", len(s.buffer)),
			slog.Int("max_size", s.cfg.MaxSize),
		)
		return errorMessage("audio buffer exceeded maximum size"), domain.ErrBufferOverflow
	}

	if len(s.buffer) < s.cfg.MinTrigger {
		return nil, nil
	}

	text, err := s.flushLocked(ctx)
	if err != nil {
		s.logger.Error("Stream partial flush failed",
			slog.Int("buffer_size", len(s.buffer)),
			slog.String("error", err.Error()),
		)
		return errorMessage(err.Error()), nil
	}

	s.buffer = nil
	return resultMessage(MessagePartial, text), nil
}

// Close performs one final flush over any remaining buffered bytes, even
// below MinTrigger, and closes the session. An empty buffer closes
// silently with no message.
func (s *Session) Close(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	s.closed = true

	if len(s.buffer) == 0 {
		return nil, nil
	}

	text, err := s.flushLocked(ctx)
	s.buffer = nil
	if err != nil {
		s.logger.Error("Stream final flush failed",
			slog.String("error", err.Error()),
		)
		return errorMessage(err.Error()), nil
	}

	return resultMessage(MessageFinal, text), nil
}

// Closed reports whether the session has terminated.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// BufferLen returns the current buffer length.
func (s *Session) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// flushLocked transcribes the current buffer: write it out as an
// artifact, convert, then run the engine while holding a worker permit.
// Both artifacts are removed before returning. Callers hold s.mu.
func (s *Session) flushLocked(ctx context.Context) (string, error) {
	inputPath, err := s.artifacts.SaveBytes(s.buffer, ".wav")
	if err != nil {
		return "", err
	}
	defer s.removeArtifact(inputPath)

	converter := s.newConverter()
	convertedPath, err := converter.Convert(ctx, inputPath)
	if err != nil {
		return "", err
	}
	defer s.removeArtifact(convertedPath)

	if err := s.pool.Acquire(ctx); err != nil {
		return "", err
	}
	defer s.pool.Release()

	engine := s.newEngine()
	return engine.Transcribe(ctx, convertedPath)
}

func (s *Session) removeArtifact(path string) {
	if err := s.artifacts.Remove(path); err != nil {
		s.logger.Warn("Failed to clean up stream artifact",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func resultMessage(msgType, text string) *Message {
	return &Message{
		Type:      msgType,
		Text:      text,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func errorMessage(text string) *Message {
	return &Message{
		Type:      MessageError,
		Text:      text,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

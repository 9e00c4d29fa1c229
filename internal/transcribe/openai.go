package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine transcribes audio through the hosted Whisper API.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIEngine creates an engine using the given API key and model.
func NewOpenAIEngine(apiKey, model string, logger *slog.Logger) *OpenAIEngine {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &OpenAIEngine{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Transcribe sends the audio file to the Whisper API and returns the text.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if e.client == nil {
		return "", fmt.Errorf("%w: OpenAI API key not configured", domain.ErrTranscriptionFailed)
	}

	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
	}

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		e.logger.Error("OpenAI transcription failed",
			slog.String("audio_path", audioPath),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}

	e.logger.Debug("OpenAI transcription finished",
		slog.String("audio_path", audioPath),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp.Text, nil
}

// IsLoaded reports whether the engine is ready to serve requests. The
// hosted API needs no local model, only credentials.
func (e *OpenAIEngine) IsLoaded() bool {
	return e.client != nil
}

// ModelIdentifier returns the configured model name.
func (e *OpenAIEngine) ModelIdentifier() string {
	return e.model
}

package transcribe

import (
	"fmt"
	"log/slog"
)

// EngineOptions selects and configures a transcription backend.
type EngineOptions struct {
	Provider      string // "openai" or "whisper.cpp"
	Model         string
	APIKey        string
	WhisperBinary string
	WhisperModel  string
}

// NewEngineFactory returns a factory producing a fresh engine per
// invocation for the configured provider.
func NewEngineFactory(opts EngineOptions, logger *slog.Logger) (EngineFactory, error) {
	switch opts.Provider {
	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return func() Engine {
			return NewOpenAIEngine(opts.APIKey, opts.Model, logger)
		}, nil

	case "whisper.cpp":
		return func() Engine {
			return NewWhisperCppEngine(opts.WhisperBinary, opts.WhisperModel, logger)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", opts.Provider)
	}
}

// NewConverterFactory returns a factory producing a fresh ffmpeg converter
// per invocation.
func NewConverterFactory(ffmpegPath string, logger *slog.Logger) ConverterFactory {
	return func() Converter {
		return NewFFmpegConverter(ffmpegPath, logger)
	}
}

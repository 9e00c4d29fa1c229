package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cuongbtq/transcribe-service/internal/domain"
)

// WhisperCppEngine transcribes audio by running a local whisper.cpp
// binary against a downloaded GGML model file.
type WhisperCppEngine struct {
	binaryPath string
	modelPath  string
	runner     commandRunner
	logger     *slog.Logger

	loadOnce sync.Once
	loadErr  error
}

// NewWhisperCppEngine creates an engine for the given binary and model
// paths. The model is verified lazily on first use.
func NewWhisperCppEngine(binaryPath, modelPath string, logger *slog.Logger) *WhisperCppEngine {
	if binaryPath == "" {
		binaryPath = "whisper-cli"
	}
	return &WhisperCppEngine{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		runner:     &execRunner{},
		logger:     logger,
	}
}

// load verifies the model file once per engine instance.
func (e *WhisperCppEngine) load() error {
	e.loadOnce.Do(func() {
		if strings.TrimSpace(e.modelPath) == "" {
			e.loadErr = fmt.Errorf("whisper model path is required")
			return
		}
		if _, err := os.Stat(e.modelPath); err != nil {
			e.loadErr = fmt.Errorf("cannot access whisper model: %s", e.modelPath)
		}
	})
	return e.loadErr
}

// Transcribe runs whisper.cpp over the audio file and reads the exported
// transcript.
func (e *WhisperCppEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := e.load(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}

	outputBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := []string{
		"-m", e.modelPath,
		"-f", audioPath,
		"-otxt",
		"-of", outputBase,
		"-np",
	}

	e.logger.Debug("Running whisper.cpp",
		slog.String("audio_path", audioPath),
		slog.String("model", e.modelPath),
	)

	result, err := e.runner.Run(ctx, e.binaryPath, args...)
	if err != nil {
		return "", fmt.Errorf("%w: whisper.cpp exit %d: %s",
			domain.ErrTranscriptionFailed, result.ExitCode, lastLine(result.Stderr))
	}

	textPath := outputBase + ".txt"
	content, err := os.ReadFile(textPath)
	if err != nil {
		return "", fmt.Errorf("%w: transcript file missing: %v", domain.ErrTranscriptionFailed, err)
	}
	defer os.Remove(textPath)

	return strings.TrimSpace(string(content)), nil
}

// IsLoaded reports whether the model file has been verified.
func (e *WhisperCppEngine) IsLoaded() bool {
	return e.load() == nil
}

// ModelIdentifier returns the model file name.
func (e *WhisperCppEngine) ModelIdentifier() string {
	return filepath.Base(e.modelPath)
}

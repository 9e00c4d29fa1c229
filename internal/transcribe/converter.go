package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/transcribe-service/internal/domain"
)

// FFmpegConverter converts arbitrary input audio to 16 kHz mono WAV, the
// format both engine adapters accept.
type FFmpegConverter struct {
	ffmpegPath string
	runner     commandRunner
	logger     *slog.Logger
}

// NewFFmpegConverter creates a converter shelling out to the given ffmpeg
// binary. An empty path falls back to "ffmpeg" on PATH.
func NewFFmpegConverter(ffmpegPath string, logger *slog.Logger) *FFmpegConverter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegConverter{
		ffmpegPath: ffmpegPath,
		runner:     &execRunner{},
		logger:     logger,
	}
}

// Convert writes the converted file next to the input with a .wav suffix
// and returns its path.
func (c *FFmpegConverter) Convert(ctx context.Context, inputPath string) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", fmt.Errorf("%w: input path is empty", domain.ErrConversionFailed)
	}

	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: cannot access input: %v", domain.ErrConversionFailed, err)
	}

	outputPath := convertedPath(inputPath)
	args := []string{
		"-y",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outputPath,
	}

	c.logger.Debug("Running ffmpeg",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
	)

	result, err := c.runner.Run(ctx, c.ffmpegPath, args...)
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg exit %d: %s",
			domain.ErrConversionFailed, result.ExitCode, lastLine(result.Stderr))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("%w: ffmpeg completed but output is missing", domain.ErrConversionFailed)
	}

	return outputPath, nil
}

// convertedPath derives the output path for an input file.
func convertedPath(inputPath string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + "-16k-mono.wav"
}

// lastLine extracts the final non-empty line of command output, which for
// ffmpeg carries the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner simulates external command execution. On success it creates
// the output file named by the last argument, like ffmpeg would.
type fakeRunner struct {
	err      error
	stderr   string
	exitCode int
	lastName string
	lastArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.lastName = name
	f.lastArgs = args

	if f.err != nil {
		return commandResult{Stderr: f.stderr, ExitCode: f.exitCode}, f.err
	}

	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("converted"), 0o644); err != nil {
		return commandResult{}, err
	}
	return commandResult{}, nil
}

func newInputFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3 bytes"), 0o644))
	return path
}

func TestFFmpegConverter_Convert(t *testing.T) {
	runner := &fakeRunner{}
	c := NewFFmpegConverter("ffmpeg", newTestLogger())
	c.runner = runner

	input := newInputFile(t)
	out, err := c.Convert(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, convertedPath(input), out)
	assert.FileExists(t, out)
	assert.Equal(t, "ffmpeg", runner.lastName)
	assert.Contains(t, runner.lastArgs, "-ar")
	assert.Contains(t, runner.lastArgs, "16000")
}

func TestFFmpegConverter_MissingInput(t *testing.T) {
	c := NewFFmpegConverter("ffmpeg", newTestLogger())
	c.runner = &fakeRunner{}

	_, err := c.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, domain.ErrConversionFailed)
}

func TestFFmpegConverter_EmptyInputPath(t *testing.T) {
	c := NewFFmpegConverter("", newTestLogger())

	_, err := c.Convert(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrConversionFailed)
}

func TestFFmpegConverter_CommandFailure(t *testing.T) {
	c := NewFFmpegConverter("ffmpeg", newTestLogger())
	c.runner = &fakeRunner{
		err:      errors.New("exit status 1"),
		stderr:   "some noise\nInvalid data found when processing input",
		exitCode: 1,
	}

	_, err := c.Convert(context.Background(), newInputFile(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConversionFailed)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestConvertedPath(t *testing.T) {
	assert.Equal(t, "/tmp/a-16k-mono.wav", convertedPath("/tmp/a.mp3"))
	assert.Equal(t, "/tmp/noext-16k-mono.wav", convertedPath("/tmp/noext"))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "last", lastLine("first\nmiddle\nlast\n"))
	assert.Equal(t, "only", lastLine("only"))
	assert.Equal(t, "", lastLine("  \n \n"))
}

package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// whisperRunner simulates whisper.cpp: on success it writes the transcript
// export named by the argument following -of.
type whisperRunner struct {
	transcript string
	err        error
	stderr     string
}

func (w *whisperRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if w.err != nil {
		return commandResult{Stderr: w.stderr, ExitCode: 1}, w.err
	}

	for i, arg := range args {
		if arg == "-of" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1]+".txt", []byte(w.transcript), 0o644); err != nil {
				return commandResult{}, err
			}
		}
	}
	return commandResult{}, nil
}

func newModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(path, []byte("model"), 0o644))
	return path
}

func newAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("wav"), 0o644))
	return path
}

func TestWhisperCppEngine_Transcribe(t *testing.T) {
	e := NewWhisperCppEngine("whisper-cli", newModelFile(t), newTestLogger())
	e.runner = &whisperRunner{transcript: " hello from whisper \n"}

	audio := newAudioFile(t)
	text, err := e.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "hello from whisper", text)

	// Transcript export is cleaned up after reading
	base := audio[:len(audio)-len(filepath.Ext(audio))]
	assert.NoFileExists(t, base+".txt")
}

func TestWhisperCppEngine_MissingModel(t *testing.T) {
	e := NewWhisperCppEngine("whisper-cli", filepath.Join(t.TempDir(), "missing.bin"), newTestLogger())

	assert.False(t, e.IsLoaded())

	_, err := e.Transcribe(context.Background(), newAudioFile(t))
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
}

func TestWhisperCppEngine_CommandFailure(t *testing.T) {
	e := NewWhisperCppEngine("whisper-cli", newModelFile(t), newTestLogger())
	e.runner = &whisperRunner{
		err:    errors.New("exit status 1"),
		stderr: "failed to load model",
	}

	_, err := e.Transcribe(context.Background(), newAudioFile(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestWhisperCppEngine_ModelIdentifier(t *testing.T) {
	e := NewWhisperCppEngine("", "/models/ggml-base.en.bin", newTestLogger())
	assert.Equal(t, "ggml-base.en.bin", e.ModelIdentifier())
}

func TestOpenAIEngine_NotLoadedWithoutKey(t *testing.T) {
	e := NewOpenAIEngine("", "whisper-1", newTestLogger())

	assert.False(t, e.IsLoaded())

	_, err := e.Transcribe(context.Background(), "audio.wav")
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
}

func TestOpenAIEngine_LoadedWithKey(t *testing.T) {
	e := NewOpenAIEngine("sk-test", "whisper-1", newTestLogger())

	assert.True(t, e.IsLoaded())
	assert.Equal(t, "whisper-1", e.ModelIdentifier())
}

func TestNewEngineFactory(t *testing.T) {
	tests := []struct {
		name      string
		opts      EngineOptions
		wantErr   bool
		errString string
	}{
		{
			name: "openai provider",
			opts: EngineOptions{Provider: "openai", Model: "whisper-1", APIKey: "sk-test"},
		},
		{
			name:      "openai without api key",
			opts:      EngineOptions{Provider: "openai", Model: "whisper-1"},
			wantErr:   true,
			errString: "requires an API key",
		},
		{
			name: "whisper.cpp provider",
			opts: EngineOptions{Provider: "whisper.cpp", WhisperModel: "models/base.bin"},
		},
		{
			name:      "unsupported provider",
			opts:      EngineOptions{Provider: "deepgram"},
			wantErr:   true,
			errString: "unsupported transcription provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewEngineFactory(tt.opts, newTestLogger())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, factory)

			// Factories build a fresh instance per invocation
			assert.NotSame(t, factory(), factory())
		})
	}
}

func TestNewConverterFactory(t *testing.T) {
	factory := NewConverterFactory("ffmpeg", newTestLogger())
	assert.NotSame(t, factory(), factory())
}

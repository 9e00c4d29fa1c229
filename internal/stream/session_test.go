package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
	"github.com/cuongbtq/transcribe-service/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughConverter returns the input path unchanged.
type passthroughConverter struct{}

func (passthroughConverter) Convert(ctx context.Context, inputPath string) (string, error) {
	return inputPath, nil
}

// echoEngine returns the audio file's content as the transcript.
type echoEngine struct {
	err error
}

func (e *echoEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	return "transcribed:" + string(data), nil
}

func (e *echoEngine) IsLoaded() bool { return true }

func (e *echoEngine) ModelIdentifier() string { return "echo" }

func newTestSession(t *testing.T, cfg Config, engine transcribe.Engine) (*Session, *worker.Pool) {
	t.Helper()

	artifacts, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	pool := worker.NewPool(1, newTestLogger())

	s := NewSession(cfg, &Dependencies{
		Pool:         pool,
		Artifacts:    artifacts,
		NewConverter: func() transcribe.Converter { return passthroughConverter{} },
		NewEngine:    func() transcribe.Engine { return engine },
		Logger:       newTestLogger(),
	})
	return s, pool
}

func TestSession_PartialAndFinalFlush(t *testing.T) {
	s, pool := newTestSession(t, Config{MinTrigger: 10, MaxSize: 20}, &echoEngine{})
	ctx := context.Background()

	// 5 bytes: below trigger, no message
	msg, err := s.Push(ctx, []byte("aaaaa"))
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 5, s.BufferLen())

	// 6 more bytes: buffer=11 >= trigger, one partial, buffer cleared
	msg, err = s.Push(ctx, []byte("bbbbbb"))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessagePartial, msg.Type)
	assert.Equal(t, "transcribed:aaaaabbbbbb", msg.Text)
	assert.NotEmpty(t, msg.Timestamp)
	assert.Equal(t, 0, s.BufferLen())
	assert.Equal(t, 0, pool.InUse())

	// Close with 3 buffered bytes: one final over exactly those bytes
	msg, err = s.Push(ctx, []byte("ccc"))
	require.NoError(t, err)
	assert.Nil(t, msg)

	msg, err = s.Close(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessageFinal, msg.Type)
	assert.Equal(t, "transcribed:ccc", msg.Text)
	assert.True(t, s.Closed())
}

func TestSession_CloseWithEmptyBuffer(t *testing.T) {
	s, _ := newTestSession(t, Config{MinTrigger: 10, MaxSize: 20}, &echoEngine{})

	msg, err := s.Close(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.True(t, s.Closed())
}

func TestSession_BufferOverflow(t *testing.T) {
	s, _ := newTestSession(t, Config{MinTrigger: 10, MaxSize: 20}, &echoEngine{})

	// One 25-byte chunk in one shot
	msg, err := s.Push(context.Background(), make([]byte, 25))
	assert.ErrorIs(t, err, domain.ErrBufferOverflow)
	require.NotNil(t, msg)
	assert.Equal(t, MessageError, msg.Type)
	assert.True(t, s.Closed())

	// No further chunks accepted
	msg, err = s.Push(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.Nil(t, msg)

	// Close after overflow is also rejected
	_, err = s.Close(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSession_PartialFlushFailureKeepsSessionOpen(t *testing.T) {
	engine := &echoEngine{err: errors.New("transcription failed: engine down")}
	s, pool := newTestSession(t, Config{MinTrigger: 5, MaxSize: 100}, engine)
	ctx := context.Background()

	msg, err := s.Push(ctx, []byte("aaaaaa"))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Text, "engine down")

	// Session stays open, buffer retained for a retry
	assert.False(t, s.Closed())
	assert.Equal(t, 6, s.BufferLen())
	assert.Equal(t, 0, pool.InUse())

	// Engine recovers: the next chunk retries the whole buffer
	engine.err = nil
	msg, err = s.Push(ctx, []byte("b"))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessagePartial, msg.Type)
	assert.Equal(t, "transcribed:aaaaaab", msg.Text)
}

func TestSession_FinalFlushFailureCloses(t *testing.T) {
	engine := &echoEngine{err: errors.New("transcription failed: engine down")}
	s, pool := newTestSession(t, Config{MinTrigger: 10, MaxSize: 100}, engine)
	ctx := context.Background()

	_, err := s.Push(ctx, []byte("abc"))
	require.NoError(t, err)

	msg, err := s.Close(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessageError, msg.Type)
	assert.True(t, s.Closed())
	assert.Equal(t, 0, pool.InUse())
}

func TestSession_ExactTriggerBoundary(t *testing.T) {
	s, _ := newTestSession(t, Config{MinTrigger: 10, MaxSize: 20}, &echoEngine{})

	// Exactly minTrigger bytes flushes
	msg, err := s.Push(context.Background(), make([]byte, 10))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, MessagePartial, msg.Type)
}

func TestSession_ExactMaxSizeIsNotOverflow(t *testing.T) {
	s, _ := newTestSession(t, Config{MinTrigger: 30, MaxSize: 20}, &echoEngine{})

	// len == maxSize is allowed; only exceeding it violates the invariant
	msg, err := s.Push(context.Background(), make([]byte, 20))
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.False(t, s.Closed())
}

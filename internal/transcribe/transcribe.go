package transcribe

import "context"

// Converter normalizes an uploaded audio file into the format the
// transcription engine expects. Implementations hold per-call resources and
// must not be shared across overlapping invocations; callers construct a
// fresh instance per job through ConverterFactory.
type Converter interface {
	Convert(ctx context.Context, inputPath string) (string, error)
}

// Engine performs speech-to-text on a converted audio file.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	IsLoaded() bool
	ModelIdentifier() string
}

// ConverterFactory builds a fresh converter per invocation.
type ConverterFactory func() Converter

// EngineFactory builds a fresh engine per invocation.
type EngineFactory func() Engine

package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id is not present in the ledger
	ErrJobNotFound = errors.New("job not found")

	// ErrCapacityExceeded is returned at admission time when the combined
	// active and queued job count has reached max_queue_size
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrConversionFailed is returned when the audio converter fails
	ErrConversionFailed = errors.New("audio conversion failed")

	// ErrTranscriptionFailed is returned when the transcription engine fails
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrBufferOverflow is returned when a stream buffer exceeds its
	// configured maximum size; terminal for the session
	ErrBufferOverflow = errors.New("stream buffer overflow")

	// ErrSessionClosed is returned when pushing to or closing an already
	// closed stream session
	ErrSessionClosed = errors.New("stream session closed")

	// ErrLedgerCorrupted signals an internal invariant violation in the
	// ledger, such as a duplicate job id. Never retried.
	ErrLedgerCorrupted = errors.New("ledger invariant violated")
)

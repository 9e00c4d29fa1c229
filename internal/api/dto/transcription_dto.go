package dto

// CreateTranscriptionResponse is returned when a job is accepted.
type CreateTranscriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TranscriptionStatusResponse is the polled view of one job.
type TranscriptionStatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Transcript  string `json:"transcript,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// EngineStatus reports transcription engine readiness for health checks.
type EngineStatus struct {
	Loaded bool   `json:"loaded"`
	Model  string `json:"model"`
}

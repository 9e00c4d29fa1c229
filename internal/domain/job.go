package domain

import "time"

// Job represents one transcription request tracked from creation to a
// terminal state. Records are stored by value in the ledger; Transcript is
// set only on completed jobs and Error only on failed ones.
type Job struct {
	ID          string
	Status      string
	Transcript  string
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Terminal reports whether the job has reached completed or failed.
func (j Job) Terminal() bool {
	return IsTerminal(j.Status)
}

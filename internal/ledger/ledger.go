package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/google/uuid"
)

// Ledger is the in-memory store of job records and the single source of
// truth for job existence and state. Records are held by value and every
// update replaces the whole record under the lock, so two concurrent
// updates to the same id can never interleave partial field writes.
type Ledger struct {
	mu     sync.RWMutex
	jobs   map[string]domain.Job
	logger *slog.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{
		jobs:   make(map[string]domain.Job),
		logger: logger,
	}
}

// Create allocates a fresh job id and inserts a pending record.
// A duplicate id means the ledger is corrupted; callers must treat that
// error as fatal rather than retry.
func (l *Ledger) Create() (string, error) {
	id := uuid.New().String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.jobs[id]; exists {
		return "", fmt.Errorf("%w: duplicate job id %s", domain.ErrLedgerCorrupted, id)
	}

	l.jobs[id] = domain.Job{
		ID:        id,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now(),
	}

	l.logger.Info("Job created",
		slog.String("job_id", id),
		slog.String("status", domain.JobStatusPending),
	)

	return id, nil
}

// Get returns a snapshot of the job record for id.
func (l *Ledger) Get(id string) (domain.Job, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	job, ok := l.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

// UpdateStatus applies one atomic state transition to the job identified by
// id. Transitions into completed require a transcript and transitions into
// failed require an error message; terminal transitions stamp CompletedAt.
// An absent id, a record already in a terminal state, or a terminal
// transition missing its payload is logged as a warning and ignored.
func (l *Ledger) UpdateStatus(id, status, transcript, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[id]
	if !ok {
		l.logger.Warn("Status update for unknown job",
			slog.String("job_id", id),
			slog.String("status", status),
		)
		return
	}

	// Terminal records never mutate again.
	if job.Terminal() {
		l.logger.Warn("Status update for terminal job ignored",
			slog.String("job_id", id),
			slog.String("current_status", job.Status),
			slog.String("requested_status", status),
		)
		return
	}

	if status == domain.JobStatusCompleted && transcript == "" {
		l.logger.Warn("Completed transition without transcript ignored",
			slog.String("job_id", id),
		)
		return
	}
	if status == domain.JobStatusFailed && errMsg == "" {
		l.logger.Warn("Failed transition without error ignored",
			slog.String("job_id", id),
		)
		return
	}

	job.Status = status
	job.Transcript = ""
	job.Error = ""

	switch status {
	case domain.JobStatusCompleted:
		job.Transcript = transcript
	case domain.JobStatusFailed:
		job.Error = errMsg
	}

	if domain.IsTerminal(status) {
		job.CompletedAt = time.Now()
	}

	l.jobs[id] = job

	l.logger.Info("Job status updated",
		slog.String("job_id", id),
		slog.String("status", status),
	)
}

// CountByStatus returns the number of jobs currently in the given status.
func (l *Ledger) CountByStatus(status string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, job := range l.jobs {
		if job.Status == status {
			count++
		}
	}
	return count
}

// TerminalBefore returns the ids of terminal jobs whose CompletedAt is
// older than cutoff. The result is a snapshot; the ledger may change
// between this call and a later Remove.
func (l *Ledger) TerminalBefore(cutoff time.Time) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []string
	for id, job := range l.jobs {
		if job.Terminal() && job.CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Remove deletes the record for id. Removing an absent id is a no-op.
func (l *Ledger) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.jobs, id)
}

// Len returns the total number of records in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.jobs)
}

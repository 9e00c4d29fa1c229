package admission

import (
	"sync"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/ledger"
)

// Capacity is a point-in-time snapshot of system load against the
// configured limits.
type Capacity struct {
	ActiveJobs        int  `json:"active_jobs"`
	QueuedJobs        int  `json:"queued_jobs"`
	MaxWorkers        int  `json:"max_workers"`
	MaxQueueSize      int  `json:"max_queue_size"`
	AvailableCapacity int  `json:"available_capacity"`
	AtCapacity        bool `json:"at_capacity"`
}

// Controller decides whether new jobs may be accepted given current ledger
// counts. Admission and job creation happen under one mutex so concurrent
// requests cannot all pass the capacity check before any record lands.
type Controller struct {
	mu           sync.Mutex
	ledger       *ledger.Ledger
	maxWorkers   int
	maxQueueSize int
}

// NewController creates an admission controller backed by the given ledger.
func NewController(l *ledger.Ledger, maxWorkers, maxQueueSize int) *Controller {
	return &Controller{
		ledger:       l,
		maxWorkers:   maxWorkers,
		maxQueueSize: maxQueueSize,
	}
}

// Snapshot returns the current capacity view. AvailableCapacity may be
// negative when limits were lowered while jobs were in flight; it is
// reported as-is rather than clamped.
func (c *Controller) Snapshot() Capacity {
	active := c.ledger.CountByStatus(domain.JobStatusProcessing)
	queued := c.ledger.CountByStatus(domain.JobStatusPending)

	return Capacity{
		ActiveJobs:        active,
		QueuedJobs:        queued,
		MaxWorkers:        c.maxWorkers,
		MaxQueueSize:      c.maxQueueSize,
		AvailableCapacity: c.maxQueueSize - (active + queued),
		AtCapacity:        active+queued >= c.maxQueueSize,
	}
}

// AdmitAndCreate checks capacity and inserts a pending job as one atomic
// step, returning the new job id or ErrCapacityExceeded. All job creation
// goes through here, so between the check and the insert no other request
// can slip past the queue bound.
func (c *Controller) AdmitAndCreate() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Snapshot().AtCapacity {
		return "", domain.ErrCapacityExceeded
	}
	return c.ledger.Create()
}

package app

import (
	"time"

	"github.com/google/uuid"
)

// Run tracks one CLI invocation. Its ID tags every log line written during
// the invocation.
type Run struct {
	ID       string
	Command  string
	Started  time.Time
	Finished time.Time
	Status   string // "success" or "error"
	Err      error
}

// NewRun creates a run that is successful until Fail is called.
func NewRun(command string, started time.Time) *Run {
	return &Run{
		ID:      started.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8],
		Command: command,
		Started: started,
		Status:  "success",
	}
}

// Fail records err as the outcome of the run.
func (r *Run) Fail(err error) {
	if err == nil {
		return
	}
	r.Status = "error"
	r.Err = err
}

// Finish stamps the end time. Only the first call has an effect.
func (r *Run) Finish(at time.Time) {
	if r.Finished.IsZero() {
		r.Finished = at
	}
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

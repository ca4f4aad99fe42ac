package watch

import (
	"time"

	"deltawatch/internal/domain/entity"
)

// RunResult describes a finished run, successful or not.
type RunResult struct {
	RunID string
	Job   string
	State State

	// NewItems are the items first seen by this run, in extraction order.
	NewItems []entity.Item

	// Extracted is the number of items the collector returned.
	Extracted int

	// Known is the size of the known set after the run.
	Known int

	// Notified is true when every enabled channel delivered the batch.
	Notified bool

	// NotifyErr is the non-fatal notification failure, if any.
	NotifyErr error

	// NothingNew is true when the run found no new items and wrote nothing.
	NothingNew bool

	Duration time.Duration
}

// ExitCode is 0 for a completed run and 1 otherwise.
func (r *RunResult) ExitCode() int {
	if r != nil && r.State == StateDone {
		return 0
	}
	return 1
}

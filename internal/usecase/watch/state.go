// Package watch runs the change detection pipeline: collect items from an
// upstream source, diff them against the known set, notify about the new
// ones and persist the updated set.
package watch

import (
	"context"
	"errors"
	"fmt"

	"deltawatch/internal/domain/entity"
)

// State is a step of a run.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateDiffing    State = "diffing"
	StateNotifying  State = "notifying"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

func (s State) String() string { return string(s) }

// Reason names why a run failed.
type Reason string

const (
	ReasonStoreUnreadable Reason = "store_unreadable"
	ReasonFetch           Reason = "fetch"
	ReasonExtraction      Reason = "extraction"
	ReasonNotify          Reason = "notify"
	ReasonPersist         Reason = "persist"
	ReasonTimeout         Reason = "timeout"
	ReasonCanceled        Reason = "canceled"
)

var (
	// ErrNoTargets is returned when a collector has nothing to fetch.
	ErrNoTargets = errors.New("no targets configured")

	// ErrMissingDependency is returned by NewService for nil ports.
	ErrMissingDependency = errors.New("missing dependency")
)

// RunError is the failure of a run. State is the step that was running.
type RunError struct {
	Reason Reason
	State  State
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed in %s (%s): %v", e.State, e.Reason, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// reasonFor classifies a failure of the collecting steps. An ended run
// context takes precedence over the error it caused.
func reasonFor(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	}
	var extractionErr *entity.ExtractionError
	if errors.As(err, &extractionErr) {
		return ReasonExtraction
	}
	return ReasonFetch
}

// ctxReason maps an ended context to its reason.
func ctxReason(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCanceled
}

package evaluation

import (
	"context"
	"time"
)

// Filter selects runs from a store. Zero fields are not applied. Results
// are ordered by creation time, newest first.
type Filter struct {
	ScenarioID    string
	Status        Status
	CreatedBefore time.Time
	Limit         int
}

// Store persists evaluation runs. Implementations must be safe for
// concurrent use and must enforce CanTransition on every status change.
type Store interface {
	// Create inserts a new run. The ID must be unused.
	Create(ctx context.Context, run *Run) error

	// Get returns a copy of the run, or an error wrapping ErrRunNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// Transition moves a run to a non-terminal status.
	Transition(ctx context.Context, id string, to Status) error

	// Finalize writes results, index, trace, completion time and status
	// done in one atomic step. No reader observes a partial write.
	Finalize(ctx context.Context, id string, f Finalization) error

	// Fail writes the error message, detail, trace, completion time and
	// status error in one atomic step.
	Fail(ctx context.Context, id string, f Failure) error

	// Delete removes a run.
	Delete(ctx context.Context, id string) error

	// List returns runs matching the filter.
	List(ctx context.Context, filter Filter) ([]*Run, error)

	// Prune deletes terminal runs completed before cutoff and returns how
	// many were removed. Non-terminal runs are never pruned.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

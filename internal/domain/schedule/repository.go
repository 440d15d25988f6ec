package schedule

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateJob is returned by Add when a job with the same id is already
// present. Job ids carry the schedule generation, so this indicates an
// internal invariant violation rather than an expected condition.
var ErrDuplicateJob = errors.New("job with this id already exists")

// JobTable defines the operations for persisting and retrieving delivery
// jobs. Implementations must make every mutation atomic per key; the Mark*
// and Remove methods are silent no-ops when the job no longer exists, which
// covers cancellation racing an in-flight dispatch.
type JobTable interface {
	Add(ctx context.Context, job *Job) error

	// CancelByOwner removes every job for the (recipient, course) pair
	// regardless of generation and returns the number removed. Removing
	// nothing is not an error.
	CancelByOwner(ctx context.Context, recipient, course string) (int, error)

	// Due returns all live jobs with FireAt <= now, ordered by FireAt
	// ascending, then LessonIndex, then insertion order.
	Due(ctx context.Context, now time.Time) ([]*Job, error)

	MarkFired(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, newFireAt time.Time) error
	MarkTerminal(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error

	// Count returns the number of jobs currently held, any state.
	Count(ctx context.Context) (int, error)
	// Snapshot returns a copy of all jobs for the debug surface.
	Snapshot(ctx context.Context) ([]*Job, error)
	// PruneTerminal deletes FAILED_TERMINAL jobs created before the cutoff.
	PruneTerminal(ctx context.Context, olderThan time.Time) (int, error)
}

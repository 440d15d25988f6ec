package progress

import "context"

// Key identifies a progress counter.
type Key struct {
	Recipient string
	Course    string
}

// Store keeps the per-(recipient, course) count of delivered lessons. The
// counter is monotonically non-decreasing between resets; callers invoke
// Increment at most once per delivered (or terminally failed) lesson.
type Store interface {
	// Increment atomically adds 1, creating the entry at 0 first if absent.
	Increment(ctx context.Context, recipient, course string) error
	// Get returns the current count, 0 if the entry is absent.
	Get(ctx context.Context, recipient, course string) (int, error)
	// Reset sets the counter to 0. Called exactly once per enrollment,
	// before any of that schedule's jobs can fire.
	Reset(ctx context.Context, recipient, course string) error
	// Snapshot returns a copy of all counters for the debug surface.
	Snapshot(ctx context.Context) (map[Key]int, error)
}

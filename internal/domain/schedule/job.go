package schedule

import (
	"fmt"
	"time"
)

// State represents the lifecycle state of a delivery job.
type State string

const (
	StatePending        State = "PENDING"
	StateFired          State = "FIRED"
	StateRetryScheduled State = "RETRY_SCHEDULED"
	StateFailedTerminal State = "FAILED_TERMINAL"
)

// Job is one scheduled lesson delivery attempt. Jobs are owned by the
// JobTable; the dispatcher mutates State and Attempt through the table's
// Mark* methods, never directly.
type Job struct {
	ID           string
	Recipient    string
	Course       string
	LessonIndex  int // 1-based position within the course
	TotalLessons int
	Generation   int64 // schedule generation that installed this job
	FireAt       time.Time
	Attempt      int
	State        State
	CreatedAt    time.Time
}

// Live reports whether the job can still be picked up by the dispatcher.
func (j *Job) Live() bool {
	return j.State == StatePending || j.State == StateRetryScheduled
}

// JobID builds the deterministic job identifier. The generation component
// keeps ids from a fresh enrollment distinct from any stale jobs of a
// previous schedule for the same recipient and course. The id is opaque:
// cancellation goes through the table's owner index, not id parsing.
func JobID(recipient, course string, generation int64, lessonIndex int) string {
	return fmt.Sprintf("%s|%s|g%d|l%d", recipient, course, generation, lessonIndex)
}

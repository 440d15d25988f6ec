package schedule

import "time"

// Mode selects the lesson cadence for a schedule.
type Mode string

const (
	// ModeProduction spaces lessons one calendar day apart at the
	// learner's preferred time-of-day.
	ModeProduction Mode = "PRODUCTION"
	// ModeTest compresses the cadence to minutes so the full pipeline can
	// be verified without waiting real days.
	ModeTest Mode = "TEST"
)

// Request is an accepted enrollment request. Immutable once built.
type Request struct {
	Recipient string
	Course    string
	Lessons   int
	TimeOfDay string // e.g. "09:00 AM"
	Mode      Mode
}

// Handle is the durable result of a successful enrollment, suitable for UI
// display and progress lookups.
type Handle struct {
	ID           string    `json:"id"`
	Recipient    string    `json:"recipient"`
	Course       string    `json:"course"`
	TotalLessons int       `json:"totalLessons"`
	FirstFireAt  time.Time `json:"firstFireAt"`
	Mode         Mode      `json:"mode"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

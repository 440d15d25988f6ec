package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/notify"
	"learnhub/internal/domain/progress"
	"learnhub/internal/domain/schedule"
	"learnhub/internal/infra/scheduler"
)

// Validation and conflict errors surfaced synchronously to the enrollment
// caller; none of these are retried.
var (
	ErrInvalidLessonCount = fmt.Errorf("lesson count is out of range")
	ErrInvalidTimeOfDay   = fmt.Errorf("preferred time must look like 09:00 AM")
	ErrInvalidRecipient   = fmt.Errorf("recipient address is not valid for this channel")
	ErrUnknownMode        = fmt.Errorf("mode must be PRODUCTION or TEST")
	ErrSchedulingConflict = fmt.Errorf("schedule conflicts with an existing job")
)

const timeOfDayLayout = "03:04 PM"

// EnrollmentConfig tunes the orchestrator's scheduling policy.
type EnrollmentConfig struct {
	MaxLessons     int  // upper bound on requested lesson count, default 30
	FirstLessonNow bool // past-due first lesson fires immediately instead of rolling a day
	TestStartDelay time.Duration // TEST mode: delay before lesson 1, default 10s
	TestInterval   time.Duration // TEST mode: spacing between lessons, default 1m
}

// EnrollmentService is the public entry point of the scheduling engine: it
// validates a request, supersedes any prior schedule for the same
// (recipient, course), computes per-lesson fire times, resets progress and
// installs the new generation of jobs.
type EnrollmentService struct {
	jobs     schedule.JobTable
	progress progress.Store
	notifier notify.Notifier
	clock    scheduler.Clock
	cfg      EnrollmentConfig
	log      *logrus.Entry

	generation atomic.Int64

	mu      sync.RWMutex
	handles map[progress.Key]*schedule.Handle
}

func NewEnrollmentService(
	jobs schedule.JobTable,
	ps progress.Store,
	n notify.Notifier,
	clock scheduler.Clock,
	cfg EnrollmentConfig,
	log *logrus.Entry,
) *EnrollmentService {
	if cfg.MaxLessons <= 0 {
		cfg.MaxLessons = 30
	}
	if cfg.TestStartDelay <= 0 {
		cfg.TestStartDelay = 10 * time.Second
	}
	if cfg.TestInterval <= 0 {
		cfg.TestInterval = time.Minute
	}
	return &EnrollmentService{
		jobs:     jobs,
		progress: ps,
		notifier: n,
		clock:    clock,
		cfg:      cfg,
		log:      log,
		handles:  make(map[progress.Key]*schedule.Handle),
	}
}

// Enroll installs a fresh schedule and returns its handle. Any prior live
// schedule for the same (recipient, course) is cancelled first; after that
// point enrollment either succeeds completely or leaves zero scheduled
// lessons, never a partial schedule.
func (s *EnrollmentService) Enroll(ctx context.Context, req schedule.Request) (*schedule.Handle, error) {
	mode := req.Mode
	if mode == "" {
		mode = schedule.ModeProduction
	}
	if mode != schedule.ModeProduction && mode != schedule.ModeTest {
		return nil, fmt.Errorf("%w: got %q", ErrUnknownMode, req.Mode)
	}
	if req.Lessons < 1 || req.Lessons > s.cfg.MaxLessons {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidLessonCount, req.Lessons, s.cfg.MaxLessons)
	}
	preferred, err := time.Parse(timeOfDayLayout, req.TimeOfDay)
	if err != nil {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidTimeOfDay, req.TimeOfDay)
	}
	if err := s.notifier.ValidateAddress(req.Recipient); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	logCtx := s.log.WithFields(logrus.Fields{
		"recipient": req.Recipient,
		"course":    req.Course,
		"lessons":   req.Lessons,
		"mode":      mode,
	})

	cancelled, err := s.jobs.CancelByOwner(ctx, req.Recipient, req.Course)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel prior schedule: %w", err)
	}
	if cancelled > 0 {
		logCtx.WithField("cancelled", cancelled).Info("Superseded prior schedule")
	}

	now := s.clock.Now()
	fireTimes := s.fireTimes(now, preferred, req.Lessons, mode)

	// Reset before install: no job of this generation can fire before
	// Enroll returns, and any prior count belongs to the superseded run.
	if err := s.progress.Reset(ctx, req.Recipient, req.Course); err != nil {
		return nil, fmt.Errorf("failed to reset progress: %w", err)
	}

	generation := s.generation.Add(1)
	installed := make([]string, 0, req.Lessons)
	for i := 1; i <= req.Lessons; i++ {
		job := &schedule.Job{
			ID:           schedule.JobID(req.Recipient, req.Course, generation, i),
			Recipient:    req.Recipient,
			Course:       req.Course,
			LessonIndex:  i,
			TotalLessons: req.Lessons,
			Generation:   generation,
			FireAt:       fireTimes[i-1],
			State:        schedule.StatePending,
			CreatedAt:    now,
		}
		if err := s.jobs.Add(ctx, job); err != nil {
			s.rollback(ctx, installed)
			if err == schedule.ErrDuplicateJob {
				logCtx.WithField("job_id", job.ID).Error("Duplicate job id during install; enrollment rejected")
				return nil, fmt.Errorf("%w: job id %s", ErrSchedulingConflict, job.ID)
			}
			return nil, fmt.Errorf("failed to install lesson %d: %w", i, err)
		}
		installed = append(installed, job.ID)
	}

	handle := &schedule.Handle{
		ID:           uuid.NewString(),
		Recipient:    req.Recipient,
		Course:       req.Course,
		TotalLessons: req.Lessons,
		FirstFireAt:  fireTimes[0],
		Mode:         mode,
		EnrolledAt:   now,
	}
	s.mu.Lock()
	s.handles[progress.Key{Recipient: req.Recipient, Course: req.Course}] = handle
	s.mu.Unlock()

	logCtx.WithField("first_fire_at", handle.FirstFireAt).Info("Enrollment scheduled")
	s.sendWelcome(ctx, req, handle)
	return handle, nil
}

// Lookup returns the active schedule handle for a (recipient, course), as
// the progress endpoint needs the total lesson count after jobs drain.
func (s *EnrollmentService) Lookup(recipient, course string) (*schedule.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[progress.Key{Recipient: recipient, Course: course}]
	return h, ok
}

// fireTimes computes one fire time per lesson. PRODUCTION spaces lessons a
// calendar day apart at the preferred time; a first lesson whose time
// already passed today rolls to tomorrow unless FirstLessonNow is set. TEST
// compresses the cadence to TestInterval starting TestStartDelay from now.
func (s *EnrollmentService) fireTimes(now, preferred time.Time, lessons int, mode schedule.Mode) []time.Time {
	times := make([]time.Time, lessons)
	if mode == schedule.ModeTest {
		first := now.Add(s.cfg.TestStartDelay)
		for i := range times {
			times[i] = first.Add(time.Duration(i) * s.cfg.TestInterval)
		}
		return times
	}

	first := time.Date(now.Year(), now.Month(), now.Day(),
		preferred.Hour(), preferred.Minute(), 0, 0, now.Location())
	if !first.After(now) {
		if s.cfg.FirstLessonNow {
			first = now
		} else {
			first = first.AddDate(0, 0, 1)
		}
	}
	for i := range times {
		times[i] = first.AddDate(0, 0, i)
	}
	return times
}

func (s *EnrollmentService) rollback(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.jobs.Remove(ctx, id); err != nil {
			s.log.WithError(err).WithField("job_id", id).Error("Failed to roll back installed job")
		}
	}
}

func (s *EnrollmentService) sendWelcome(ctx context.Context, req schedule.Request, handle *schedule.Handle) {
	text := fmt.Sprintf(
		"🎓 Welcome to LearnHub! Your %s course is scheduled: %d daily lessons, starting %s.",
		req.Course, handle.TotalLessons, handle.FirstFireAt.Format("Mon, Jan 2 at 03:04 PM"),
	)
	if err := s.notifier.Send(ctx, req.Recipient, text); err != nil {
		// Best effort; the schedule is installed either way.
		s.log.WithError(err).WithField("recipient", req.Recipient).Warn("Failed to send welcome message")
	}
}

package scheduler_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/internal/app"
	"learnhub/internal/domain/schedule"
	"learnhub/internal/infra/content"
	"learnhub/internal/infra/memory"
	"learnhub/internal/infra/scheduler"
)

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []string
	failWhen func(text string) bool
}

func (n *recordingNotifier) Send(_ context.Context, _, text string) error {
	if n.failWhen != nil && n.failWhen(text) {
		return fmt.Errorf("notifier rejected message")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *recordingNotifier) ValidateAddress(string) error { return nil }

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type pipeline struct {
	table      *memory.JobTable
	store      *memory.ProgressStore
	notifier   *recordingNotifier
	clock      *scheduler.FakeClock
	enroll     *app.EnrollmentService
	dispatcher *scheduler.Dispatcher
}

func newPipeline(t *testing.T, start time.Time, maxRetries int, retryDelay time.Duration) *pipeline {
	t.Helper()
	p := &pipeline{
		table:    memory.NewJobTable(),
		store:    memory.NewProgressStore(),
		notifier: &recordingNotifier{},
		clock:    scheduler.NewFakeClock(start),
	}
	delivery := app.NewDeliveryService(
		p.store, content.NewStaticProvider(), p.notifier,
		app.DeliveryConfig{AdvanceOnFailure: true}, quietLog(),
	)
	p.enroll = app.NewEnrollmentService(
		p.table, p.store, p.notifier, p.clock,
		app.EnrollmentConfig{TestStartDelay: 10 * time.Second, TestInterval: time.Minute},
		quietLog(),
	)
	p.dispatcher = scheduler.NewDispatcher(scheduler.DispatcherConfig{
		Table:   p.table,
		Handler: delivery,
		Policy: scheduler.RetryPolicy{
			MaxRetries: maxRetries,
			Backoff:    scheduler.FixedBackoff(retryDelay),
		},
		Clock:  p.clock,
		Logger: quietLog(),
	})
	return p
}

func (p *pipeline) scanAt(ctx context.Context, offset time.Duration, start time.Time) {
	p.clock.Set(start.Add(offset))
	p.dispatcher.Scan(ctx, p.clock.Now())
}

func TestTestModeScheduleRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := newPipeline(t, start, 2, 5*time.Minute)

	_, err := p.enroll.Enroll(ctx, schedule.Request{
		Recipient: "+15550001111",
		Course:    "Python Programming",
		Lessons:   3,
		TimeOfDay: "09:00 AM",
		Mode:      schedule.ModeTest,
	})
	require.NoError(t, err)

	// Nothing is due before the first lesson's fire time.
	p.scanAt(ctx, 5*time.Second, start)
	got, err := p.store.Get(ctx, "+15550001111", "Python Programming")
	require.NoError(t, err)
	assert.Zero(t, got)

	// Advance past each fire time in turn: +10s, +70s, +130s.
	p.scanAt(ctx, 15*time.Second, start)
	p.scanAt(ctx, 75*time.Second, start)
	p.scanAt(ctx, 135*time.Second, start)

	got, err = p.store.Get(ctx, "+15550001111", "Python Programming")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	n, err := p.table.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "all jobs should be removed after successful delivery")

	// Welcome + 3 lessons + completion notice.
	assert.Len(t, p.notifier.sent, 5)
	assert.Contains(t, p.notifier.sent[4], "Congratulations")
}

func TestFailingLessonGoesTerminalWhileOthersComplete(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := newPipeline(t, start, 2, 5*time.Minute)
	p.notifier.failWhen = func(text string) bool {
		return strings.Contains(text, "Lesson 2 of 3")
	}

	_, err := p.enroll.Enroll(ctx, schedule.Request{
		Recipient: "+15550001111",
		Course:    "Python Programming",
		Lessons:   3,
		TimeOfDay: "09:00 AM",
		Mode:      schedule.ModeTest,
	})
	require.NoError(t, err)

	// First pass: lessons 1 and 3 deliver, lesson 2 fails its first attempt.
	p.scanAt(ctx, 3*time.Minute, start)
	got, err := p.store.Get(ctx, "+15550001111", "Python Programming")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	// Two retries, both failing.
	p.scanAt(ctx, 9*time.Minute, start)
	p.scanAt(ctx, 15*time.Minute, start)

	got, err = p.store.Get(ctx, "+15550001111", "Python Programming")
	require.NoError(t, err)
	assert.Equal(t, 3, got, "terminal failure still advances progress")

	jobs, err := p.table.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, schedule.StateFailedTerminal, jobs[0].State)
	assert.Equal(t, 2, jobs[0].LessonIndex)
	assert.Equal(t, 2, jobs[0].Attempt)

	due, err := p.table.Due(ctx, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due, "terminal jobs are never due again")
}

func TestRetryRecoversAfterTransientFailure(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := newPipeline(t, start, 2, 5*time.Minute)

	failing := true
	p.notifier.failWhen = func(text string) bool {
		return failing && strings.Contains(text, "Lesson 1 of 1")
	}

	_, err := p.enroll.Enroll(ctx, schedule.Request{
		Recipient: "+15550001111",
		Course:    "JavaScript",
		Lessons:   1,
		TimeOfDay: "09:00 AM",
		Mode:      schedule.ModeTest,
	})
	require.NoError(t, err)

	p.scanAt(ctx, time.Minute, start)
	got, err := p.store.Get(ctx, "+15550001111", "JavaScript")
	require.NoError(t, err)
	assert.Zero(t, got)

	failing = false
	p.scanAt(ctx, 7*time.Minute, start)

	got, err = p.store.Get(ctx, "+15550001111", "JavaScript")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	n, err := p.table.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReEnrollmentDuringScheduleSupersedes(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := newPipeline(t, start, 2, 5*time.Minute)

	req := schedule.Request{
		Recipient: "+15550001111",
		Course:    "Data Science",
		Lessons:   3,
		TimeOfDay: "09:00 AM",
		Mode:      schedule.ModeTest,
	}
	_, err := p.enroll.Enroll(ctx, req)
	require.NoError(t, err)

	// Deliver lesson 1, then re-enroll mid-course.
	p.scanAt(ctx, 15*time.Second, start)
	got, err := p.store.Get(ctx, "+15550001111", "Data Science")
	require.NoError(t, err)
	require.Equal(t, 1, got)

	req.Lessons = 2
	_, err = p.enroll.Enroll(ctx, req)
	require.NoError(t, err)

	got, err = p.store.Get(ctx, "+15550001111", "Data Science")
	require.NoError(t, err)
	assert.Zero(t, got, "re-enrollment resets progress")

	// Run the new schedule to completion from the re-enrollment instant.
	reStart := p.clock.Now()
	p.scanAt(ctx, 15*time.Second, reStart)
	p.scanAt(ctx, 75*time.Second, reStart)

	got, err = p.store.Get(ctx, "+15550001111", "Data Science")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	n, err := p.table.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

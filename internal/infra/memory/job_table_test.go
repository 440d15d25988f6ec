package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/internal/domain/schedule"
)

func newJob(recipient, course string, gen int64, idx, total int, fireAt time.Time) *schedule.Job {
	return &schedule.Job{
		ID:           schedule.JobID(recipient, course, gen, idx),
		Recipient:    recipient,
		Course:       course,
		LessonIndex:  idx,
		TotalLessons: total,
		Generation:   gen,
		FireAt:       fireAt,
		State:        schedule.StatePending,
		CreatedAt:    fireAt.Add(-time.Hour),
	}
}

func TestJobTableAddDuplicate(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, table.Add(ctx, newJob("+15550001111", "JavaScript", 1, 1, 3, base)))
	err := table.Add(ctx, newJob("+15550001111", "JavaScript", 1, 1, 3, base))
	assert.ErrorIs(t, err, schedule.ErrDuplicateJob)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJobTableCancelByOwner(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		require.NoError(t, table.Add(ctx, newJob("a@b.c", "Data Science", 1, i, 3, base.AddDate(0, 0, i-1))))
	}
	// Same recipient, different course: must survive cancellation.
	require.NoError(t, table.Add(ctx, newJob("a@b.c", "JavaScript", 1, 1, 1, base)))

	removed, err := table.CancelByOwner(ctx, "a@b.c", "Data Science")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Idempotent on an empty owner.
	removed, err = table.CancelByOwner(ctx, "a@b.c", "Data Science")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJobTableCancelIgnoresSeparatorInValues(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// A recipient containing the id separator must not cross-match another key.
	require.NoError(t, table.Add(ctx, newJob("a|b", "c", 1, 1, 1, base)))
	require.NoError(t, table.Add(ctx, newJob("a", "b|c", 1, 1, 1, base)))

	removed, err := table.CancelByOwner(ctx, "a|b", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJobTableDueOrderingAndFiltering(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	j3 := newJob("r", "c", 1, 3, 3, base.Add(2*time.Minute))
	j1 := newJob("r", "c", 1, 1, 3, base)
	j2 := newJob("r", "c", 1, 2, 3, base.Add(time.Minute))
	future := newJob("r2", "c", 1, 1, 1, base.Add(time.Hour))
	require.NoError(t, table.Add(ctx, j3))
	require.NoError(t, table.Add(ctx, j1))
	require.NoError(t, table.Add(ctx, j2))
	require.NoError(t, table.Add(ctx, future))

	due, err := table.Due(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, 1, due[0].LessonIndex)
	assert.Equal(t, 2, due[1].LessonIndex)
	assert.Equal(t, 3, due[2].LessonIndex)

	// Fired jobs are no longer due.
	require.NoError(t, table.MarkFired(ctx, j1.ID))
	due, err = table.Due(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Len(t, due, 2)

	// Retry-scheduled jobs come back once their new fire time passes.
	require.NoError(t, table.MarkRetry(ctx, j1.ID, base.Add(10*time.Minute)))
	due, err = table.Due(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, due, 3)
	for _, j := range due {
		if j.ID == j1.ID {
			assert.Equal(t, 1, j.Attempt)
			assert.Equal(t, schedule.StateRetryScheduled, j.State)
		}
	}
}

func TestJobTableMarksAreNoOpsWhenMissing(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()

	assert.NoError(t, table.MarkFired(ctx, "missing"))
	assert.NoError(t, table.MarkRetry(ctx, "missing", time.Now()))
	assert.NoError(t, table.MarkTerminal(ctx, "missing"))
	assert.NoError(t, table.Remove(ctx, "missing"))
}

func TestJobTablePruneTerminal(t *testing.T) {
	ctx := context.Background()
	table := NewJobTable()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	old := newJob("r", "c", 1, 1, 2, base)
	old.CreatedAt = base.Add(-48 * time.Hour)
	fresh := newJob("r", "c", 1, 2, 2, base)
	fresh.CreatedAt = base
	require.NoError(t, table.Add(ctx, old))
	require.NoError(t, table.Add(ctx, fresh))
	require.NoError(t, table.MarkTerminal(ctx, old.ID))
	require.NoError(t, table.MarkTerminal(ctx, fresh.ID))

	pruned, err := table.PruneTerminal(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"learnhub/internal/domain/schedule"
)

type jobEntry struct {
	job *schedule.Job
	seq uint64 // insertion order, tie-break for Due
}

type ownerKey struct {
	recipient string
	course    string
}

// JobTable is the in-memory schedule.JobTable used in tests and for
// single-process deployments. Cancellation goes through an explicit
// secondary index keyed by (recipient, course), so job ids are never parsed
// and separator characters in recipient or course values cannot cause
// cross-matches.
type JobTable struct {
	mu      sync.Mutex
	jobs    map[string]*jobEntry
	byOwner map[ownerKey]map[string]struct{}
	nextSeq uint64
}

var _ schedule.JobTable = (*JobTable)(nil)

func NewJobTable() *JobTable {
	return &JobTable{
		jobs:    make(map[string]*jobEntry),
		byOwner: make(map[ownerKey]map[string]struct{}),
	}
}

func (t *JobTable) Add(_ context.Context, job *schedule.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.jobs[job.ID]; exists {
		return schedule.ErrDuplicateJob
	}

	cp := *job
	t.nextSeq++
	t.jobs[job.ID] = &jobEntry{job: &cp, seq: t.nextSeq}

	key := ownerKey{recipient: job.Recipient, course: job.Course}
	ids, ok := t.byOwner[key]
	if !ok {
		ids = make(map[string]struct{})
		t.byOwner[key] = ids
	}
	ids[job.ID] = struct{}{}
	return nil
}

func (t *JobTable) CancelByOwner(_ context.Context, recipient, course string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := ownerKey{recipient: recipient, course: course}
	ids := t.byOwner[key]
	removed := len(ids)
	for id := range ids {
		delete(t.jobs, id)
	}
	delete(t.byOwner, key)
	return removed, nil
}

func (t *JobTable) Due(_ context.Context, now time.Time) ([]*schedule.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var entries []*jobEntry
	for _, e := range t.jobs {
		if e.job.Live() && !e.job.FireAt.After(now) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.job.FireAt.Equal(b.job.FireAt) {
			return a.job.FireAt.Before(b.job.FireAt)
		}
		if a.job.LessonIndex != b.job.LessonIndex {
			return a.job.LessonIndex < b.job.LessonIndex
		}
		return a.seq < b.seq
	})

	due := make([]*schedule.Job, 0, len(entries))
	for _, e := range entries {
		cp := *e.job
		due = append(due, &cp)
	}
	return due, nil
}

func (t *JobTable) MarkFired(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.jobs[id]; ok {
		e.job.State = schedule.StateFired
	}
	return nil
}

func (t *JobTable) MarkRetry(_ context.Context, id string, newFireAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.jobs[id]; ok {
		e.job.State = schedule.StateRetryScheduled
		e.job.FireAt = newFireAt
		e.job.Attempt++
	}
	return nil
}

func (t *JobTable) MarkTerminal(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.jobs[id]; ok {
		e.job.State = schedule.StateFailedTerminal
	}
	return nil
}

func (t *JobTable) Remove(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
	return nil
}

func (t *JobTable) removeLocked(id string) {
	e, ok := t.jobs[id]
	if !ok {
		return
	}
	delete(t.jobs, id)
	key := ownerKey{recipient: e.job.Recipient, course: e.job.Course}
	if ids, ok := t.byOwner[key]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(t.byOwner, key)
		}
	}
}

func (t *JobTable) Count(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs), nil
}

func (t *JobTable) Snapshot(_ context.Context) ([]*schedule.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	jobs := make([]*schedule.Job, 0, len(t.jobs))
	for _, e := range t.jobs {
		cp := *e.job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

func (t *JobTable) PruneTerminal(_ context.Context, olderThan time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for id, e := range t.jobs {
		if e.job.State == schedule.StateFailedTerminal && e.job.CreatedAt.Before(olderThan) {
			t.removeLocked(id)
			pruned++
		}
	}
	return pruned, nil
}

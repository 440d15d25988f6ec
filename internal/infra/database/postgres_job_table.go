package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"learnhub/internal/domain/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresJobTable implements schedule.JobTable on the 'lesson_jobs' table
// (see schema.sql). The (recipient, course) index on the table is the
// secondary owner index used for cancellation; ids are never parsed.
type PostgresJobTable struct {
	db *sql.DB
}

var _ schedule.JobTable = (*PostgresJobTable)(nil)

func NewPostgresJobTable(db *sql.DB) *PostgresJobTable {
	return &PostgresJobTable{db: db}
}

const jobColumns = `id, recipient, course, lesson_index, total_lessons, generation, fire_at, attempt, state, created_at`

func (t *PostgresJobTable) Add(ctx context.Context, job *schedule.Job) error {
	query := `INSERT INTO lesson_jobs (` + jobColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := t.db.ExecContext(ctx, query,
		job.ID, job.Recipient, job.Course, job.LessonIndex, job.TotalLessons,
		job.Generation, job.FireAt, job.Attempt, job.State, job.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "lesson_jobs_pkey") {
			return schedule.ErrDuplicateJob
		}
		return fmt.Errorf("error adding lesson job: %w", err)
	}
	return nil
}

func (t *PostgresJobTable) CancelByOwner(ctx context.Context, recipient, course string) (int, error) {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM lesson_jobs WHERE recipient = $1 AND course = $2`, recipient, course)
	if err != nil {
		return 0, fmt.Errorf("error cancelling jobs by owner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading cancelled job count: %w", err)
	}
	return int(n), nil
}

func (t *PostgresJobTable) Due(ctx context.Context, now time.Time) ([]*schedule.Job, error) {
	query := `SELECT ` + jobColumns + `
               FROM lesson_jobs
               WHERE fire_at <= $1 AND state IN ($2, $3)
               ORDER BY fire_at, lesson_index, seq`
	rows, err := t.db.QueryContext(ctx, query, now, schedule.StatePending, schedule.StateRetryScheduled)
	if err != nil {
		return nil, fmt.Errorf("error querying due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (t *PostgresJobTable) MarkFired(ctx context.Context, id string) error {
	// Missing rows are a cancellation race, not an error.
	_, err := t.db.ExecContext(ctx,
		`UPDATE lesson_jobs SET state = $1 WHERE id = $2`, schedule.StateFired, id)
	if err != nil {
		return fmt.Errorf("error marking job fired: %w", err)
	}
	return nil
}

func (t *PostgresJobTable) MarkRetry(ctx context.Context, id string, newFireAt time.Time) error {
	_, err := t.db.ExecContext(ctx,
		`UPDATE lesson_jobs SET state = $1, fire_at = $2, attempt = attempt + 1 WHERE id = $3`,
		schedule.StateRetryScheduled, newFireAt, id)
	if err != nil {
		return fmt.Errorf("error marking job for retry: %w", err)
	}
	return nil
}

func (t *PostgresJobTable) MarkTerminal(ctx context.Context, id string) error {
	_, err := t.db.ExecContext(ctx,
		`UPDATE lesson_jobs SET state = $1 WHERE id = $2`, schedule.StateFailedTerminal, id)
	if err != nil {
		return fmt.Errorf("error marking job terminal: %w", err)
	}
	return nil
}

func (t *PostgresJobTable) Remove(ctx context.Context, id string) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM lesson_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error removing job: %w", err)
	}
	return nil
}

func (t *PostgresJobTable) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lesson_jobs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting jobs: %w", err)
	}
	return n, nil
}

func (t *PostgresJobTable) Snapshot(ctx context.Context) ([]*schedule.Job, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM lesson_jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying job snapshot: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (t *PostgresJobTable) PruneTerminal(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM lesson_jobs WHERE state = $1 AND created_at < $2`,
		schedule.StateFailedTerminal, olderThan)
	if err != nil {
		return 0, fmt.Errorf("error pruning terminal jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned job count: %w", err)
	}
	return int(n), nil
}

func scanJobs(rows *sql.Rows) ([]*schedule.Job, error) {
	jobs := make([]*schedule.Job, 0)
	for rows.Next() {
		j := schedule.Job{}
		if err := rows.Scan(
			&j.ID, &j.Recipient, &j.Course, &j.LessonIndex, &j.TotalLessons,
			&j.Generation, &j.FireAt, &j.Attempt, &j.State, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning job row: %w", err)
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"learnhub/internal/domain/progress"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresProgressStore implements progress.Store on the 'lesson_progress'
// table (see schema.sql). Increments are single upsert statements, so
// concurrent deliveries cannot lose updates.
type PostgresProgressStore struct {
	db *sql.DB
}

var _ progress.Store = (*PostgresProgressStore)(nil)

func NewPostgresProgressStore(db *sql.DB) *PostgresProgressStore {
	return &PostgresProgressStore{db: db}
}

func (s *PostgresProgressStore) Increment(ctx context.Context, recipient, course string) error {
	query := `INSERT INTO lesson_progress (recipient, course, completed)
               VALUES ($1, $2, 1)
               ON CONFLICT (recipient, course)
               DO UPDATE SET completed = lesson_progress.completed + 1, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, recipient, course); err != nil {
		return fmt.Errorf("error incrementing progress: %w", err)
	}
	return nil
}

func (s *PostgresProgressStore) Get(ctx context.Context, recipient, course string) (int, error) {
	var completed int
	err := s.db.QueryRowContext(ctx,
		`SELECT completed FROM lesson_progress WHERE recipient = $1 AND course = $2`,
		recipient, course).Scan(&completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("error getting progress: %w", err)
	}
	return completed, nil
}

func (s *PostgresProgressStore) Reset(ctx context.Context, recipient, course string) error {
	query := `INSERT INTO lesson_progress (recipient, course, completed)
               VALUES ($1, $2, 0)
               ON CONFLICT (recipient, course)
               DO UPDATE SET completed = 0, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, recipient, course); err != nil {
		return fmt.Errorf("error resetting progress: %w", err)
	}
	return nil
}

func (s *PostgresProgressStore) Snapshot(ctx context.Context) (map[progress.Key]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT recipient, course, completed FROM lesson_progress`)
	if err != nil {
		return nil, fmt.Errorf("error querying progress snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[progress.Key]int)
	for rows.Next() {
		var k progress.Key
		var completed int
		if err := rows.Scan(&k.Recipient, &k.Course, &completed); err != nil {
			return nil, fmt.Errorf("error scanning progress row: %w", err)
		}
		out[k] = completed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress rows: %w", err)
	}
	return out, nil
}

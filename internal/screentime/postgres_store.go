package screentime

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore is a Postgres-backed implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres screen-time store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the screen_time_logs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS screen_time_logs (
			id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			app_name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'other',
			duration_minutes BIGINT NOT NULL CHECK (duration_minutes >= 1),
			log_date DATE NOT NULL,
			log_hour INT NOT NULL CHECK (log_hour >= 0 AND log_hour <= 23),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_screen_time_child_date
			ON screen_time_logs(child_id, log_date);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate screen_time_logs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, log *Log) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO screen_time_logs (id, child_id, app_name, category, duration_minutes, log_date, log_hour, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.ChildID, log.AppName, log.Category,
		log.DurationMinutes, log.Date, log.Hour, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert screen time log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSince(ctx context.Context, childID, sinceDate string) ([]*Log, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, app_name, category, duration_minutes, log_date, log_hour, created_at
		FROM screen_time_logs
		WHERE child_id = $1 AND log_date >= $2
		ORDER BY log_date, log_hour`,
		childID, sinceDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query screen time logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

func (s *PostgresStore) ListForDay(ctx context.Context, childID, date string) ([]*Log, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, app_name, category, duration_minutes, log_date, log_hour, created_at
		FROM screen_time_logs
		WHERE child_id = $1 AND log_date = $2
		ORDER BY log_hour`,
		childID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query screen time logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

func (s *PostgresStore) TotalForDay(ctx context.Context, childID, date string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM screen_time_logs
		WHERE child_id = $1 AND log_date = $2`,
		childID, date,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum screen time: %w", err)
	}
	return total, nil
}

func scanLogs(rows *sql.Rows) ([]*Log, error) {
	var logs []*Log
	for rows.Next() {
		var l Log
		var day time.Time
		if err := rows.Scan(&l.ID, &l.ChildID, &l.AppName, &l.Category,
			&l.DurationMinutes, &day, &l.Hour, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan screen time log: %w", err)
		}
		l.Date = day.Format("2006-01-02")
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

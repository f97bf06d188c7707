package focusmode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore is a Postgres-backed implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres focus session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the focus_sessions table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS focus_sessions (
			id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			name TEXT NOT NULL,
			schedule JSONB NOT NULL,
			blocked_apps JSONB NOT NULL DEFAULT '[]',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_focus_sessions_child
			ON focus_sessions(child_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate focus_sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, session *Session) error {
	schedule, err := json.Marshal(session.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	apps, err := json.Marshal(session.BlockedApps)
	if err != nil {
		return fmt.Errorf("failed to marshal blocked apps: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (id, child_id, name, schedule, blocked_apps, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.ChildID, session.Name, schedule, apps,
		session.IsActive, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert focus session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, child_id, name, schedule, blocked_apps, is_active, created_at
		FROM focus_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, name, schedule, blocked_apps, is_active, created_at
		FROM focus_sessions
		WHERE child_id = $1
		ORDER BY created_at`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, session *Session) error {
	schedule, err := json.Marshal(session.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	apps, err := json.Marshal(session.BlockedApps)
	if err != nil {
		return fmt.Errorf("failed to marshal blocked apps: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE focus_sessions
		SET name = $2, schedule = $3, blocked_apps = $4, is_active = $5
		WHERE id = $1`,
		session.ID, session.Name, schedule, apps, session.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update focus session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM focus_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete focus session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var schedule, apps []byte
	err := row.Scan(&sess.ID, &sess.ChildID, &sess.Name, &schedule, &apps,
		&sess.IsActive, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan focus session: %w", err)
	}
	if err := json.Unmarshal(schedule, &sess.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	if err := json.Unmarshal(apps, &sess.BlockedApps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocked apps: %w", err)
	}
	return &sess, nil
}

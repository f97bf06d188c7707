package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore is a Postgres-backed implementation of Store. Update
// uses SELECT FOR UPDATE so concurrent streak and reward requests for
// the same child serialize on the row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres gamification store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the gamification_states table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gamification_states (
			child_id TEXT PRIMARY KEY,
			points BIGINT NOT NULL DEFAULT 0,
			streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			badges JSONB NOT NULL DEFAULT '[]',
			last_active_date TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate gamification_states: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, childID string) (*State, error) {
	if err := s.EnsureState(ctx, childID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT child_id, points, streak, longest_streak, level, badges, last_active_date, created_at, updated_at
		FROM gamification_states WHERE child_id = $1`, childID)
	return scanState(row)
}

func (s *PostgresStore) EnsureState(ctx context.Context, childID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gamification_states (child_id)
		VALUES ($1)
		ON CONFLICT (child_id) DO NOTHING`, childID)
	if err != nil {
		return fmt.Errorf("failed to ensure gamification state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, childID string, fn func(*State) error) (*State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO gamification_states (child_id)
		VALUES ($1)
		ON CONFLICT (child_id) DO NOTHING`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure gamification state: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT child_id, points, streak, longest_streak, level, badges, last_active_date, created_at, updated_at
		FROM gamification_states WHERE child_id = $1
		FOR UPDATE`, childID)
	state, err := scanState(row)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	badges, err := json.Marshal(state.Badges)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal badges: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE gamification_states
		SET points = $2, streak = $3, longest_streak = $4, level = $5,
		    badges = $6, last_active_date = $7, updated_at = $8
		WHERE child_id = $1`,
		childID, state.Points, state.Streak, state.LongestStreak, state.Level,
		badges, state.LastActiveDate, state.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update gamification state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return state, nil
}

func scanState(row *sql.Row) (*State, error) {
	var st State
	var badges []byte
	var lastActive sql.NullTime
	err := row.Scan(&st.ChildID, &st.Points, &st.Streak, &st.LongestStreak,
		&st.Level, &badges, &lastActive, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan gamification state: %w", err)
	}
	if err := json.Unmarshal(badges, &st.Badges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badges: %w", err)
	}
	if st.Badges == nil {
		st.Badges = []string{}
	}
	if lastActive.Valid {
		t := lastActive.Time
		st.LastActiveDate = &t
	}
	return &st, nil
}

package children

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists child profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed child store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the children table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS children (
			id              VARCHAR(36) PRIMARY KEY,
			parent_id       VARCHAR(36) NOT NULL,
			name            VARCHAR(100) NOT NULL,
			age             INTEGER NOT NULL CHECK (age >= 3 AND age <= 17),
			avatar          TEXT NOT NULL DEFAULT '',
			device_id       VARCHAR(100) NOT NULL DEFAULT '',
			daily_limit_min BIGINT NOT NULL DEFAULT 120,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_children_parent
			ON children (parent_id);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, child *Child) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO children (id, parent_id, name, age, avatar, device_id, daily_limit_min, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		child.ID, child.ParentID, child.Name, child.Age,
		child.Avatar, child.DeviceID, child.DailyLimitMin,
		child.CreatedAt, child.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Child, error) {
	c := &Child{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, name, age, avatar, device_id, daily_limit_min, created_at, updated_at
		FROM children WHERE id = $1
	`, id).Scan(&c.ID, &c.ParentID, &c.Name, &c.Age, &c.Avatar, &c.DeviceID,
		&c.DailyLimitMin, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListByParent(ctx context.Context, parentID string) ([]*Child, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, name, age, avatar, device_id, daily_limit_min, created_at, updated_at
		FROM children WHERE parent_id = $1
		ORDER BY created_at ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Child
	for rows.Next() {
		c := &Child{}
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Age, &c.Avatar, &c.DeviceID,
			&c.DailyLimitMin, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, child *Child) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE children SET
			name = $1, age = $2, avatar = $3, device_id = $4,
			daily_limit_min = $5, updated_at = $6
		WHERE id = $7
	`, child.Name, child.Age, child.Avatar, child.DeviceID,
		child.DailyLimitMin, child.UpdatedAt, child.ID)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

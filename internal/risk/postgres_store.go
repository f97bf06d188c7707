package risk

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

// NewPostgresStore creates a Postgres assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			tier TEXT NOT NULL CHECK (tier IN ('LOW', 'MODERATE', 'HIGH', 'CRITICAL')),
			explanation TEXT NOT NULL,
			factors JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_risk_assessments_child
			ON risk_assessments(child_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate risk_assessments: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, a *Assessment) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, child_id, score, tier, explanation, factors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ChildID, a.Score, a.Tier, a.Explanation, factors, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, score, tier, explanation, factors, created_at
		FROM risk_assessments
		WHERE child_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var result []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Latest(ctx context.Context, childID string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, child_id, score, tier, explanation, factors, created_at
		FROM risk_assessments
		WHERE child_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		childID,
	)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	var a Assessment
	var factors []byte
	err := row.Scan(&a.ID, &a.ChildID, &a.Score, &a.Tier, &a.Explanation, &factors, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan assessment: %w", err)
	}
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
	}
	return &a, nil
}

package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists alerts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the alerts table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id          VARCHAR(36) PRIMARY KEY,
			child_id    VARCHAR(36) NOT NULL,
			user_id     VARCHAR(36) NOT NULL,
			type        VARCHAR(32) NOT NULL,
			severity    VARCHAR(16) NOT NULL CHECK (severity IN ('INFO', 'WARNING', 'DANGER', 'CRITICAL')),
			title       TEXT NOT NULL,
			message     TEXT NOT NULL DEFAULT '',
			metadata    JSONB NOT NULL DEFAULT '{}',
			is_read     BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_user
			ON alerts (user_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_alerts_child
			ON alerts (child_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_alerts_unread
			ON alerts (user_id) WHERE is_read = FALSE;
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, alert *Alert) error {
	metadataJSON, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, child_id, user_id, type, severity, title, message, metadata, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		alert.ID, alert.ChildID, alert.UserID,
		string(alert.Type), string(alert.Severity),
		alert.Title, alert.Message, metadataJSON, alert.IsRead, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, child_id, user_id, type, severity, title, message, metadata, is_read, created_at
		FROM alerts WHERE id = $1
	`, id)
	return scanAlert(row)
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery) ([]*Alert, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, child_id, user_id, type, severity, title, message, metadata, is_read, created_at
		FROM alerts
		WHERE user_id = $1`
	args := []interface{}{q.UserID}
	argIdx := 2

	if q.ChildID != "" {
		query += fmt.Sprintf(" AND child_id = $%d", argIdx)
		args = append(args, q.ChildID)
		argIdx++
	}
	if q.UnreadOnly {
		query += " AND is_read = FALSE"
	}
	if q.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, q.Cursor.CreatedAt, q.Cursor.ID)
		argIdx += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAlerts(rows)
}

func (s *PostgresStore) ListRecentByChild(ctx context.Context, childID string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, user_id, type, severity, title, message, metadata, is_read, created_at
		FROM alerts
		WHERE child_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAlerts(rows)
}

func (s *PostgresStore) MarkRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlertFrom(row rowScanner) (*Alert, error) {
	a := &Alert{}
	var typ, severity string
	var metadataJSON []byte

	err := row.Scan(&a.ID, &a.ChildID, &a.UserID, &typ, &severity,
		&a.Title, &a.Message, &metadataJSON, &a.IsRead, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = Type(typ)
	a.Severity = Severity(severity)
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &a.Metadata)
	}
	return a, nil
}

func scanAlert(row *sql.Row) (*Alert, error) {
	a, err := scanAlertFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func scanAlerts(rows *sql.Rows) ([]*Alert, error) {
	var out []*Alert
	for rows.Next() {
		a, err := scanAlertFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore is a Postgres-backed implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'PARENT',
			avatar TEXT NOT NULL DEFAULT '',
			is_verified BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			otp_code TEXT NOT NULL DEFAULT '',
			otp_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, name, phone, role, avatar, is_verified, is_active, otp_code, otp_expiry, created_at`

func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Phone,
		user.Role, user.Avatar, user.IsVerified, user.IsActive,
		user.OTPCode, user.OTPExpiry, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) Update(ctx context.Context, user *User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, phone = $5, role = $6,
		    avatar = $7, is_verified = $8, is_active = $9, otp_code = $10, otp_expiry = $11
		WHERE id = $1`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Phone,
		user.Role, user.Avatar, user.IsVerified, user.IsActive,
		user.OTPCode, user.OTPExpiry,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var otpExpiry sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone,
		&u.Role, &u.Avatar, &u.IsVerified, &u.IsActive, &u.OTPCode,
		&otpExpiry, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if otpExpiry.Valid {
		t := otpExpiry.Time
		u.OTPExpiry = &t
	}
	return &u, nil
}

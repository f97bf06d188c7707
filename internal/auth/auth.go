// Package auth provides parent account management: registration with
// OTP verification, login, and JWT-based session tokens.
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles. Children never log in directly; the CHILD role exists for
// device tokens.
const (
	RoleParent = "PARENT"
	RoleAdmin  = "ADMIN"
	RoleChild  = "CHILD"
)

// BcryptCost is the bcrypt work factor for password hashing.
const BcryptCost = 12

// OTPTTL is how long a verification code stays valid.
const OTPTTL = 10 * time.Minute

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// User is an account on the platform.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Role         string     `json:"role"`
	Avatar       string     `json:"avatar,omitempty"`
	IsVerified   bool       `json:"isVerified"`
	IsActive     bool       `json:"isActive"`
	OTPCode      string     `json:"-"`
	OTPExpiry    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Store persists user accounts.
type Store interface {
	// Create stores a new user. Returns ErrEmailTaken on duplicate email.
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

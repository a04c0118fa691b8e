// Package auth provides user accounts and opaque bearer tokens for the
// HTTP API.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the store and service.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves this package.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// SQLiteStore persists users and token fingerprints in SQLite. Tokens
// are stored as SHA-256 fingerprints of the plaintext, so a leaked
// database does not leak usable tokens.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and its tables if they do not exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tokens (
	fingerprint TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id);
`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create auth tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) createUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixNano(),
	)
	if err != nil {
		var exists bool
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, u.Email,
		).Scan(&exists); scanErr == nil && exists {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) userByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt)
	return &u, nil
}

func (s *SQLiteStore) saveToken(ctx context.Context, fingerprint, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (fingerprint, user_id, expires_at) VALUES (?, ?, ?)`,
		fingerprint, userID, expiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) userByToken(ctx context.Context, fingerprint string, now time.Time) (*User, error) {
	var u User
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.created_at
		 FROM tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.fingerprint = ? AND t.expires_at > ?`,
		fingerprint, now.UnixNano(),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt)
	return &u, nil
}

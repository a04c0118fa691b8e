package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenPrefix marks tokens issued by this service; it makes leaked
// tokens easy to recognize in secret scanners.
const tokenPrefix = "dsp_"

// defaultTokenTTL is how long a login token stays valid.
const defaultTokenTTL = 30 * 24 * time.Hour

// Service implements registration, login, and token validation on top
// of a SQLiteStore.
type Service struct {
	store    *SQLiteStore
	tokenTTL time.Duration
}

// NewService creates a Service with the default token lifetime.
func NewService(store *SQLiteStore) *Service {
	return &Service{store: store, tokenTTL: defaultTokenTTL}
}

// Register creates a new user. The email must be non-empty and unique;
// the password must be at least 8 characters.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCredentials)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.store.createUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login checks the credentials and, on success, issues a bearer token.
// Only the token's SHA-256 fingerprint is stored.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.store.userByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := tokenPrefix + hex.EncodeToString(raw)

	if err := s.store.saveToken(ctx, fingerprint(token), u.ID, time.Now().Add(s.tokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user. It returns
// ErrInvalidToken for unknown, malformed, or expired tokens.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, ErrInvalidToken
	}
	return s.store.userByToken(ctx, fingerprint(token), time.Now())
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

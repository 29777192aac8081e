package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned when email or password do not match.
var ErrBadCredentials = fmt.Errorf("store: invalid email or password")

// CreateUser inserts a local account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, u *User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, avatar_url, auth_provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.AuthProvider, u.CreatedAt)
	return err
}

// Authenticate verifies email and password against the stored hash.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		// External-provider account with no local password.
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// GetUserByEmail retrieves an account by email. Returns sql.ErrNoRows when
// absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, auth_provider, created_at
		FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// GetUserByID retrieves an account by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, auth_provider, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpsertExternalUser provisions or refreshes an account coming from an
// external identity provider. Matching is on email; display name and
// avatar follow the provider on every login.
func (s *Store) UpsertExternalUser(ctx context.Context, newID func() string, email, displayName, avatarURL, provider string) (*User, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		_, err = s.DB.ExecContext(ctx,
			`UPDATE users SET display_name = ?, avatar_url = ?, auth_provider = ? WHERE id = ?`,
			displayName, avatarURL, provider, existing.ID)
		if err != nil {
			return nil, err
		}
		existing.DisplayName = displayName
		existing.AvatarURL = avatarURL
		existing.AuthProvider = provider
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	u := &User{
		ID:           newID(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  displayName,
		AvatarURL:    avatarURL,
		AuthProvider: provider,
		CreatedAt:    time.Now().UnixMilli(),
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, avatar_url, auth_provider, created_at)
		VALUES (?, ?, '', ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.AvatarURL, u.AuthProvider, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.AvatarURL, &u.AuthProvider, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

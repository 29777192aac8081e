package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/mcpstudio/studio/internal/store"
)

// ErrBadCredentials is returned by Login when email or password do not
// match an account.
var ErrBadCredentials = errors.New("studio: invalid email or password")

// ErrEmailTaken is returned by RegisterUser when the email is already
// registered.
var ErrEmailTaken = errors.New("studio: email already registered")

// Account is the public view of a user record.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url"`
	AuthProvider string `json:"auth_provider"`
}

func accountOf(u *store.User) *Account {
	return &Account{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		AvatarURL:    u.AvatarURL,
		AuthProvider: u.AuthProvider,
	}
}

// RegisterUser creates a local account.
func (svc *Service) RegisterUser(ctx context.Context, email, password, displayName string) (*Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	u := &store.User{ID: svc.newID(), Email: email, DisplayName: displayName}
	if err := svc.store.CreateUser(ctx, u, password); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("studio: create user: %w", err)
	}
	svc.logger.Info("user registered", "user_id", u.ID)
	return accountOf(u), nil
}

// Login verifies a local account's credentials.
func (svc *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	u, err := svc.store.Authenticate(ctx, email, password)
	if errors.Is(err, store.ErrBadCredentials) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	return accountOf(u), nil
}

// UpsertOAuthUser provisions or refreshes an account from an external
// identity provider, matched on email.
func (svc *Service) UpsertOAuthUser(ctx context.Context, email, displayName, avatarURL, provider string) (*Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrInvalidInput)
	}
	u, err := svc.store.UpsertExternalUser(ctx, svc.newID, email, displayName, avatarURL, provider)
	if err != nil {
		return nil, fmt.Errorf("studio: upsert oauth user: %w", err)
	}
	return accountOf(u), nil
}

package studio

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterUser_AndLogin(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()

	acc, err := svc.RegisterUser(ctx, "new@example.com", "hunter2hunter2", "New User")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if acc.ID == "" || acc.Email != "new@example.com" {
		t.Fatalf("account: %+v", acc)
	}

	got, err := svc.Login(ctx, "new@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("login id: got %q, want %q", got.ID, acc.ID)
	}

	if _, err := svc.Login(ctx, "new@example.com", "wrong-password"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: got %v, want ErrBadCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter2hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email: got %v, want ErrBadCredentials", err)
	}
}

func TestRegisterUser_Validation(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "not-an-email", "hunter2hunter2", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad email: got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, "ok@example.com", "short", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: got %v", err)
	}

	if _, err := svc.RegisterUser(ctx, "dup@example.com", "hunter2hunter2", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RegisterUser(ctx, "dup@example.com", "hunter2hunter2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}
}

func TestUpsertOAuthUser_StableID(t *testing.T) {
	svc := setupService(t, &stubLLM{})
	ctx := context.Background()

	first, err := svc.UpsertOAuthUser(ctx, "Ext@Example.com", "Ext User", "http://a/1.png", "google")
	if err != nil {
		t.Fatalf("UpsertOAuthUser: %v", err)
	}
	second, err := svc.UpsertOAuthUser(ctx, "ext@example.com", "Renamed", "http://a/2.png", "google")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed across logins: %q vs %q", first.ID, second.ID)
	}
	if second.DisplayName != "Renamed" || second.AvatarURL != "http://a/2.png" {
		t.Fatalf("profile not refreshed: %+v", second)
	}

	// OAuth accounts have no local password.
	if _, err := svc.Login(ctx, "ext@example.com", "anything-at-all"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("oauth account local login: got %v, want ErrBadCredentials", err)
	}
}

package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/mcpstudio/kit"
)

var testSecret = bytes.Repeat([]byte("s"), 32)

func TestGenerateValidateRoundTrip(t *testing.T) {
	claims := &Claims{
		UserID: "usr_1",
		Email:  "dev@example.com",
		Role:   "admin",
	}
	token, err := GenerateToken(testSecret, claims, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got.UserID != "usr_1" {
		t.Fatalf("user_id: got %q, want usr_1", got.UserID)
	}
	if got.Role != "admin" {
		t.Fatalf("role: got %q, want admin", got.Role)
	}
}

func TestGenerateToken_ShortSecret(t *testing.T) {
	_, err := GenerateToken([]byte("short"), &Claims{UserID: "u"}, time.Hour)
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken(testSecret, &Claims{UserID: "u"}, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(testSecret, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, &Claims{UserID: "u"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other := bytes.Repeat([]byte("x"), 32)
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestMiddleware_BearerHeader(t *testing.T) {
	token, err := GenerateToken(testSecret, &Claims{UserID: "usr_9", Role: "editor"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var gotUserID, gotRole string
	h := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = kit.GetUserID(r.Context())
		gotRole = kit.GetRole(r.Context())
		if GetClaims(r.Context()) == nil {
			t.Error("claims missing from context")
		}
	}))

	req := httptest.NewRequest("GET", "/api/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID != "usr_9" {
		t.Fatalf("user_id: got %q, want usr_9", gotUserID)
	}
	if gotRole != "editor" {
		t.Fatalf("role: got %q, want editor", gotRole)
	}
}

func TestMiddleware_InvalidTokenIgnored(t *testing.T) {
	h := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) != nil {
			t.Error("claims should be nil for invalid token")
		}
	}))

	req := httptest.NewRequest("GET", "/api/mcp", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/mcp", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

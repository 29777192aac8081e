package kit

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetUserID(ctx); got != "" {
		t.Fatalf("empty context: got %q, want empty", got)
	}
	ctx = WithUserID(ctx, "usr_1")
	if got := GetUserID(ctx); got != "usr_1" {
		t.Fatalf("got %q, want usr_1", got)
	}
}

func TestTransportDefault(t *testing.T) {
	if got := GetTransport(context.Background()); got != "http" {
		t.Fatalf("default transport: got %q, want http", got)
	}
	ctx := WithTransport(context.Background(), "mcp")
	if got := GetTransport(ctx); got != "mcp" {
		t.Fatalf("got %q, want mcp", got)
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_42")
	if got := GetRequestID(ctx); got != "req_42" {
		t.Fatalf("got %q, want req_42", got)
	}
}

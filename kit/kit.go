// Package kit holds the transport-agnostic plumbing shared by mcpstudio's
// HTTP and MCP surfaces: typed context keys for request-scoped identity and
// the Endpoint shape that both transports dispatch to.
package kit

import "context"

// Endpoint is a transport-agnostic operation: decoded request in, response
// out. HTTP handlers and MCP tools both terminate in an Endpoint.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

const (
	UserIDKey    contextKey = "kit_user_id"
	TransportKey contextKey = "kit_transport" // "http", "mcp"
	RequestIDKey contextKey = "kit_request_id"
	RoleKey      contextKey = "kit_role"
)

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(RoleKey).(string)
	return v
}

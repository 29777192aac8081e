package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claims structure for mcpstudio sessions. It embeds
// jwt.RegisteredClaims for the standard fields (exp, iat, etc.) and adds
// the identity fields the API scopes on.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	DisplayName  string `json:"display_name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	AuthProvider string `json:"auth_provider,omitempty"` // "local", "google"
}

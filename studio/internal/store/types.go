package store

// User is one studio account. PasswordHash is empty for accounts
// provisioned through an external identity provider.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url"`
	AuthProvider string `json:"auth_provider"`
	CreatedAt    int64  `json:"created_at"`
}

// MCP is one MCP project record. DefinitionJSON holds the structured
// definition as serialized JSON, empty until the first successful
// generation.
type MCP struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Goal           string `json:"goal"`
	Roles          string `json:"roles"`
	DefinitionJSON string `json:"definition_json,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// MCPUpdate carries a partial update. Nil fields are left untouched.
type MCPUpdate struct {
	Name           *string `json:"name"`
	Domain         *string `json:"domain"`
	Goal           *string `json:"goal"`
	Roles          *string `json:"roles"`
	DefinitionJSON *string `json:"definition_json"`
}

package studio

import (
	"github.com/hazyhaar/mcpstudio/studio/internal/store"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

const testUserID = "user-1"

var userFixture = store.User{
	ID:          testUserID,
	Email:       "tester@example.com",
	DisplayName: "Tester",
}

const validDefinitionJSON = `{
	"system_prompt": "You are a careful legal research assistant.",
	"input_schema_description": "A question about case law.",
	"output_schema_description": "A cited answer.",
	"constraints": ["Cite sources", "No speculation"],
	"examples": [{"input": "q", "output": "a"}]
}`

func mcpUpdateWithDefinition(def string) *store.MCPUpdate {
	return &store.MCPUpdate{DefinitionJSON: &def}
}

func scopeFor(mcpID string) vecindex.Scope {
	return vecindex.Scope{UserID: testUserID, MCPID: mcpID}
}

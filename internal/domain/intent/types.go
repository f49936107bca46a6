// Package intent contains the domain types for an Intent: a structured
// description of a proposed agent operation being evaluated.
package intent

import (
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
)

// Actor describes who or what is proposing the operation.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"` // user, service, llm, agent
}

// Resource describes the target of the operation.
type Resource struct {
	Type     string `json:"type"`     // database, file, api
	Name     string `json:"name"`
	Location string `json:"location"` // local, cloud
}

// Data describes the sensitivity/shape of data touched by the operation.
type Data struct {
	Sensitivity []string `json:"sensitivity"` // subset of {public, internal, confidential}
	PII         *bool    `json:"pii,omitempty"`
	Volume      string   `json:"volume,omitempty"` // single, bulk
}

// Risk describes the authn posture of the operation.
type Risk struct {
	Authn string `json:"authn"` // required, not_required
}

// Intent is a structured description of a proposed agent action being
// evaluated.
type Intent struct {
	ID        string  `json:"id"`
	TenantID  string  `json:"tenant_id"`
	AgentID   string  `json:"agent_id"`
	Timestamp float64 `json:"timestamp"`

	Actor    Actor        `json:"actor"`
	Action   string       `json:"action"`
	Resource Resource     `json:"resource"`
	Data     Data         `json:"data"`
	Risk     Risk         `json:"risk"`
	Layer    vocab.Layer  `json:"layer"`

	// Optional tool-call fields.
	ToolName         string                 `json:"tool_name,omitempty"`
	ToolMethod       string                 `json:"tool_method,omitempty"`
	ToolParams       map[string]interface{} `json:"tool_params,omitempty"`
	RateLimitContext string                 `json:"rate_limit_context,omitempty"`
}

// ForToolCall is a convenience constructor that fills in the optional
// tool-call fields, mirroring the shape of an MCP tools/call request without
// pulling in any MCP transport dependency.
func ForToolCall(base Intent, toolName, toolMethod string, params map[string]interface{}) Intent {
	base.ToolName = toolName
	base.ToolMethod = toolMethod
	base.ToolParams = params
	return base
}

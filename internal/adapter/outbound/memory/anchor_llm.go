package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fencio-dev/guard-sub000/internal/anchorbuilder"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
)

// StubAnchorLLM is a development/testing implementation of the LLM Anchor
// Provider port: it answers every anchor-generation prompt with templated,
// schema-conforming JSON derived from the rule serialized inside the
// prompt. Deterministic, offline, and schema-valid; a production
// deployment swaps in the HTTP provider instead.
type StubAnchorLLM struct{}

// NewStubAnchorLLM creates the stub provider.
func NewStubAnchorLLM() StubAnchorLLM {
	return StubAnchorLLM{}
}

// promptedRule is the subset of the serialized rule the stub reads back
// out of the prompt body.
type promptedRule struct {
	FamilyID rule.Family     `json:"family_id"`
	Params   json.RawMessage `json:"params"`
}

// Generate extracts the serialized rule from the prompt and produces two
// templated anchor strings per slot. The response passes the builder's
// schema and vocabulary guard by construction.
func (StubAnchorLLM) Generate(ctx context.Context, prompt string, responseSchema json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := parsePromptedRule(prompt)
	subjects := anchorSubjects(r)

	resp := map[string][]string{
		"action": {
			"an agent performs one operation permitted by this policy",
			"a permitted operation issued by a known agent identity",
		},
		"resource": subjects,
		"data": {
			"data within the sensitivity bounds this policy permits",
			"a volume of records small enough for this policy",
		},
		"risk": {
			"a caller whose authentication posture satisfies this policy",
			"an operation carrying the risk level this policy accepts",
		},
	}
	return json.Marshal(resp)
}

// parsePromptedRule finds the JSON object embedded in the prompt body. The
// builder places the serialized rule on its own line after "Rule:".
func parsePromptedRule(prompt string) promptedRule {
	var r promptedRule
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &r); err == nil && r.FamilyID != "" {
				return r
			}
		}
	}
	return r
}

// anchorSubjects derives resource-slot anchor strings from the family
// params, naming concrete tools/hosts where the params carry them.
func anchorSubjects(r promptedRule) []string {
	names := paramNames(r)
	if len(names) == 0 {
		return []string{
			"a resource within the scope this policy governs",
			"the target resource class named by this policy",
		}
	}
	out := make([]string, 0, 4)
	for i, n := range names {
		if i == 4 {
			break
		}
		out = append(out, fmt.Sprintf("the %s resource permitted for this agent", n))
	}
	if len(out) == 1 {
		out = append(out, "the target resource class named by this policy")
	}
	return out
}

// paramNames pulls the first string-list field out of the family params.
func paramNames(r promptedRule) []string {
	if len(r.Params) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(r.Params, &m); err != nil {
		return nil
	}
	for _, v := range m {
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		var names []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	return nil
}

var _ anchorbuilder.LLMProvider = StubAnchorLLM{}

// Package encoder turns Intents and anchor strings into the four 32-dim
// slot vectors the Comparison Kernel compares. It has two
// halves: canonicalization (deterministic text per slot) and projection
// (a fixed, seeded sparse random projection from the embedding's native
// dimension down to vector.SlotDim), with an Embedder port and cache in
// between.
package encoder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
)

// canonicalPair is a single "key: value" entry destined for one slot's
// canonical text.
type canonicalPair struct {
	key   string
	value string
}

// CanonicalizeIntent builds the four ordered slot texts for an Intent:
// action, resource, data, risk. Multi-valued fields
// are sorted lexicographically so permutations of the same set produce
// identical text, and every field is rendered as "key: value" joined by
// " | " within a slot.
func CanonicalizeIntent(in *intent.Intent) [4]string {
	var out [4]string
	out[0] = render(actionPairs(in))
	out[1] = render(resourcePairs(in))
	out[2] = render(dataPairs(in))
	out[3] = render(riskPairs(in))
	return out
}

func actionPairs(in *intent.Intent) []canonicalPair {
	pairs := []canonicalPair{
		{"actor_type", in.Actor.Type},
		{"action", in.Action},
		{"layer", string(in.Layer)},
	}
	if in.ToolName != "" {
		pairs = append(pairs, canonicalPair{"tool_name", in.ToolName})
	}
	if in.ToolMethod != "" {
		pairs = append(pairs, canonicalPair{"tool_method", in.ToolMethod})
	}
	return pairs
}

func resourcePairs(in *intent.Intent) []canonicalPair {
	pairs := []canonicalPair{
		{"resource_type", in.Resource.Type},
	}
	if in.Resource.Name != "" {
		pairs = append(pairs, canonicalPair{"resource_name", in.Resource.Name})
	}
	if in.Resource.Location != "" {
		pairs = append(pairs, canonicalPair{"location", in.Resource.Location})
	}
	return pairs
}

func dataPairs(in *intent.Intent) []canonicalPair {
	pairs := []canonicalPair{}
	if len(in.Data.Sensitivity) > 0 {
		sorted := append([]string(nil), in.Data.Sensitivity...)
		sort.Strings(sorted)
		pairs = append(pairs, canonicalPair{"sensitivity", strings.Join(sorted, ",")})
	}
	if in.Data.PII != nil {
		pairs = append(pairs, canonicalPair{"pii", fmt.Sprintf("%t", *in.Data.PII)})
	}
	if in.Data.Volume != "" {
		pairs = append(pairs, canonicalPair{"volume", in.Data.Volume})
	}
	return pairs
}

func riskPairs(in *intent.Intent) []canonicalPair {
	pairs := []canonicalPair{
		{"authn", in.Risk.Authn},
	}
	if in.RateLimitContext != "" {
		pairs = append(pairs, canonicalPair{"rate_limit_context", in.RateLimitContext})
	}
	return pairs
}

func render(pairs []canonicalPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+": "+p.value)
	}
	return strings.Join(parts, " | ")
}

// Package enforcement contains the domain types returned by a single
// enforcement call: the ALLOW/BLOCK decision, the per-rule evidence trail,
// and the closed set of BLOCK reason codes.
package enforcement

import "github.com/fencio-dev/guard-sub000/pkg/vector"

// Decision is the binary outcome of an enforcement call or of one rule's
// comparison. 1 permits the intent, 0 blocks it.
type Decision int

const (
	Block Decision = 0
	Allow Decision = 1
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "block"
}

// Reason codes attached to BLOCK decisions that did not come from a rule
// comparison. Per-rule BLOCKs carry no reason (the evidence trail names the
// blocking rule instead).
const (
	ReasonNoRulesConfigured = "no_rules_configured"
	ReasonDeadlineExceeded  = "deadline_exceeded"
	ReasonInternalError     = "internal_inconsistency"
)

// Evidence records one rule comparison: which rule, at what priority, the
// four slot similarities observed, and that rule's individual verdict.
// Evidence is created transiently per enforcement call and handed to the
// caller as part of the decision payload.
type Evidence struct {
	RuleID       string                   `json:"rule_id"`
	Priority     int                      `json:"priority"`
	Sims         [vector.NumSlots]float32 `json:"sims"`
	RuleDecision Decision                 `json:"rule_decision"`
}

// Result is the payload of a completed enforcement call.
// Decision 0 with a non-empty Reason is a policy BLOCK (fail-closed or
// deadline); Decision 0 with an empty Reason is a per-rule BLOCK whose
// blocking rule is the last Evidence entry.
type Result struct {
	Decision       Decision   `json:"decision"`
	Evidence       []Evidence `json:"evidence"`
	RulesEvaluated int        `json:"rules_evaluated"`
	Reason         string     `json:"reason,omitempty"`
}

// Package rule contains the domain types for installed Rules: the
// tagged-variant Rule itself, its pre-encoded RuleAnchors, and the
// enforcement-relevant RuleHandle carried by the Rule Store.
package rule

import (
	"encoding/json"
	"time"

	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// Family identifies a fine-grained rule type within a layer. There are 14
// families.
type Family string

const (
	FamilyToolWhitelist        Family = "tool_whitelist"
	FamilyToolParamConstraint  Family = "tool_param_constraint"
	FamilyToolBlacklist        Family = "tool_blacklist"
	FamilyNetEgress            Family = "net_egress"
	FamilyNetIngress           Family = "net_ingress"
	FamilyDataSensitivityFloor Family = "data_sensitivity_floor"
	FamilyDataVolumeCap        Family = "data_volume_cap"
	FamilyPIIExportBlock       Family = "pii_export_block"
	FamilyResourceLocationPin  Family = "resource_location_pin"
	FamilyActorTypeRestriction Family = "actor_type_restriction"
	FamilyActionRestriction    Family = "action_restriction"
	FamilyAuthnRequirement     Family = "authn_requirement"
	FamilyRateLimitContext     Family = "rate_limit_context"
	FamilyBulkOperationGuard   Family = "bulk_operation_guard"
)

// Families is the closed set of all 14 recognized family ids.
var Families = map[Family]bool{
	FamilyToolWhitelist:        true,
	FamilyToolParamConstraint:  true,
	FamilyToolBlacklist:        true,
	FamilyNetEgress:            true,
	FamilyNetIngress:           true,
	FamilyDataSensitivityFloor: true,
	FamilyDataVolumeCap:        true,
	FamilyPIIExportBlock:       true,
	FamilyResourceLocationPin:  true,
	FamilyActorTypeRestriction: true,
	FamilyActionRestriction:    true,
	FamilyAuthnRequirement:     true,
	FamilyRateLimitContext:     true,
	FamilyBulkOperationGuard:   true,
}

// DecisionMode is a rule's policy for combining its four slot similarities
// into a single satisfied/unsatisfied verdict.
type DecisionMode string

const (
	// DecisionModeMin requires every slot similarity to meet its threshold.
	DecisionModeMin DecisionMode = "min"
	// DecisionModeWeightedAvg requires the weighted mean similarity to meet
	// the rule's global_threshold.
	DecisionModeWeightedAvg DecisionMode = "weighted_avg"
)

// Thresholds holds one float per slot, in the fixed slot order, each in [0,1].
type Thresholds [vector.NumSlots]float32

// Weights holds one non-negative float per slot, in the fixed slot order.
type Weights [vector.NumSlots]float32

// Rule is a typed, family-specific installed policy assertion.
// Params carries the family-specific payload as raw JSON; only the Anchor
// Builder inspects it; the Comparison Kernel never does.
type Rule struct {
	RuleID       string          `json:"rule_id"`
	FamilyID     Family          `json:"family_id"`
	Layer        vocab.Layer     `json:"layer"`
	TenantID     string          `json:"tenant_id"`
	AgentID      string          `json:"agent_id,omitempty"` // empty == tenant-scoped
	Priority     int             `json:"priority"`
	Enabled      bool            `json:"enabled"`
	Thresholds   Thresholds      `json:"thresholds"`
	Weights      Weights         `json:"weights"`
	DecisionMode DecisionMode    `json:"decision_mode"`
	GlobalThresh float32         `json:"global_threshold"`
	Params       json.RawMessage `json:"params,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsTenantScoped reports whether this rule applies to every agent in the
// tenant (agent_id is null/empty).
func (r *Rule) IsTenantScoped() bool {
	return r.AgentID == ""
}

// Anchors is the per-slot, padded list of up to MaxAnchorsPerSlot anchor
// vectors for one rule, produced once at installation.
// Invariant: Count[s] >= 1 for every slot; rows at index >= Count[s] are
// zero and must never be read by the Comparison Kernel.
type Anchors struct {
	Vectors [vector.NumSlots][vector.MaxAnchorsPerSlot]vector.Slot32
	Count   [vector.NumSlots]int
}

// Handle is the enforcement-relevant projection of a Rule carried by the
// Rule Store's priority-ordered tables: metadata plus a stable reference to
// the rule's pre-encoded anchors.
type Handle struct {
	RuleID       string
	Priority     int
	Enabled      bool
	Thresholds   Thresholds
	Weights      Weights
	DecisionMode DecisionMode
	GlobalThresh float32
	AgentID      string // empty == tenant-scoped
}

// HandleFrom projects a Rule into its enforcement-relevant Handle.
func HandleFrom(r *Rule) Handle {
	return Handle{
		RuleID:       r.RuleID,
		Priority:     r.Priority,
		Enabled:      r.Enabled,
		Thresholds:   r.Thresholds,
		Weights:      r.Weights,
		DecisionMode: r.DecisionMode,
		GlobalThresh: r.GlobalThresh,
		AgentID:      r.AgentID,
	}
}

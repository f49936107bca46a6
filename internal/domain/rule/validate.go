package rule

import (
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// Validate checks a Rule's structural invariants ahead of installation:
// known family, valid layer, non-empty rule/tenant ids, thresholds in
// [0,1], non-negative weights, and a recognized decision mode.
func Validate(r *Rule, contract *vocab.Contract) error {
	if r.RuleID == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "rule_id is required")
	}
	if r.TenantID == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "tenant_id is required")
	}
	if !Families[r.FamilyID] {
		return guarderr.New(guarderr.KindMalformedIntent, "unknown family_id: "+string(r.FamilyID))
	}
	if !contract.IsValidLayer(r.Layer) {
		return guarderr.New(guarderr.KindVocabularyViolation, "layer not in vocabulary: "+string(r.Layer))
	}
	for _, t := range r.Thresholds {
		if t < 0 || t > 1 {
			return guarderr.New(guarderr.KindMalformedIntent, "threshold out of range [0,1]")
		}
	}
	for _, w := range r.Weights {
		if w < 0 {
			return guarderr.New(guarderr.KindMalformedIntent, "weight must be non-negative")
		}
	}
	if r.GlobalThresh < 0 || r.GlobalThresh > 1 {
		return guarderr.New(guarderr.KindMalformedIntent, "global_threshold out of range [0,1]")
	}
	switch r.DecisionMode {
	case DecisionModeMin, DecisionModeWeightedAvg:
	default:
		return guarderr.New(guarderr.KindMalformedIntent, "unknown decision_mode: "+string(r.DecisionMode))
	}
	return nil
}

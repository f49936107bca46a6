package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// RuleBundle is a YAML document carrying rules for batch installation via
// `guard install --file`.
type RuleBundle struct {
	Rules []BundleRule `yaml:"rules"`
}

// BundleRule is the YAML shape of one rule. Omitted thresholds fall back
// to the per-slot defaults; an omitted decision mode falls back to "min";
// omitted weights fall back to 1.0 each.
type BundleRule struct {
	RuleID       string                 `yaml:"rule_id"`
	FamilyID     string                 `yaml:"family_id"`
	Layer        string                 `yaml:"layer"`
	TenantID     string                 `yaml:"tenant_id"`
	AgentID      string                 `yaml:"agent_id"`
	Priority     int                    `yaml:"priority"`
	Enabled      *bool                  `yaml:"enabled"`
	Thresholds   []float32              `yaml:"thresholds"`
	Weights      []float32              `yaml:"weights"`
	DecisionMode string                 `yaml:"decision_mode"`
	GlobalThresh float32                `yaml:"global_threshold"`
	Params       map[string]interface{} `yaml:"params"`
}

// LoadRuleBundle reads and converts a YAML rule bundle into domain rules,
// applying contract defaults for omitted fields. Structural validation
// happens at installation; this only rejects shapes that cannot convert.
func LoadRuleBundle(path string, contract *vocab.Contract) ([]*rule.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule bundle: %w", err)
	}
	var bundle RuleBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing rule bundle: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(bundle.Rules))
	for i, br := range bundle.Rules {
		r, err := br.toRule(contract)
		if err != nil {
			return nil, fmt.Errorf("rule bundle entry %d (%s): %w", i, br.RuleID, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (br *BundleRule) toRule(contract *vocab.Contract) (*rule.Rule, error) {
	r := &rule.Rule{
		RuleID:       br.RuleID,
		FamilyID:     rule.Family(br.FamilyID),
		Layer:        vocab.Layer(br.Layer),
		TenantID:     br.TenantID,
		AgentID:      br.AgentID,
		Priority:     br.Priority,
		Enabled:      true,
		DecisionMode: rule.DecisionMode(br.DecisionMode),
		GlobalThresh: br.GlobalThresh,
	}
	if br.Enabled != nil {
		r.Enabled = *br.Enabled
	}
	if r.DecisionMode == "" {
		r.DecisionMode = rule.DecisionModeMin
	}

	switch len(br.Thresholds) {
	case 0:
		for i := range r.Thresholds {
			r.Thresholds[i] = contract.DefaultThreshold(vector.Slot(i))
		}
	case len(r.Thresholds):
		copy(r.Thresholds[:], br.Thresholds)
	default:
		return nil, fmt.Errorf("thresholds must have %d entries, got %d", len(r.Thresholds), len(br.Thresholds))
	}

	switch len(br.Weights) {
	case 0:
		for i := range r.Weights {
			r.Weights[i] = 1.0
		}
	case len(r.Weights):
		copy(r.Weights[:], br.Weights)
	default:
		return nil, fmt.Errorf("weights must have %d entries, got %d", len(r.Weights), len(br.Weights))
	}

	if len(br.Params) > 0 {
		params, err := json.Marshal(br.Params)
		if err != nil {
			return nil, fmt.Errorf("converting params: %w", err)
		}
		r.Params = params
	}
	return r, nil
}

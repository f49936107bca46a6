package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
)

const bundleYAML = `
rules:
  - rule_id: r-whitelist
    family_id: tool_whitelist
    layer: L4
    tenant_id: t1
    agent_id: analytics-agent
    priority: 100
    params:
      allowed_tool_ids: [search_database, update_record]
  - rule_id: r-wavg
    family_id: net_egress
    layer: L2
    tenant_id: t1
    priority: 10
    enabled: false
    thresholds: [0.9, 0.9, 0.9, 0.9]
    weights: [2, 1, 1, 0]
    decision_mode: weighted_avg
    global_threshold: 0.8
    params:
      allowed_hosts: [api.internal]
      allowed_ports: [443]
`

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRuleBundle(t *testing.T) {
	contract, err := vocab.Load()
	require.NoError(t, err)

	rules, err := LoadRuleBundle(writeBundle(t, bundleYAML), contract)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	require.Equal(t, "r-whitelist", first.RuleID)
	require.Equal(t, rule.FamilyToolWhitelist, first.FamilyID)
	require.Equal(t, vocab.LayerL4, first.Layer)
	require.True(t, first.Enabled, "enabled defaults to true")
	require.Equal(t, rule.DecisionModeMin, first.DecisionMode)
	require.Equal(t, rule.Thresholds{0.85, 0.80, 0.75, 0.70}, first.Thresholds,
		"omitted thresholds use contract defaults")
	require.Equal(t, rule.Weights{1, 1, 1, 1}, first.Weights)
	require.NotEmpty(t, first.Params)
	require.NoError(t, rule.Validate(first, contract))

	second := rules[1]
	require.False(t, second.Enabled)
	require.Equal(t, rule.DecisionModeWeightedAvg, second.DecisionMode)
	require.Equal(t, rule.Thresholds{0.9, 0.9, 0.9, 0.9}, second.Thresholds)
	require.Equal(t, rule.Weights{2, 1, 1, 0}, second.Weights)
	require.Equal(t, float32(0.8), second.GlobalThresh)
	require.Empty(t, second.AgentID, "tenant-scoped rule")
}

func TestLoadRuleBundleRejectsBadThresholdCount(t *testing.T) {
	contract, err := vocab.Load()
	require.NoError(t, err)

	bad := `
rules:
  - rule_id: r1
    family_id: tool_whitelist
    layer: L4
    tenant_id: t1
    thresholds: [0.9, 0.9]
`
	_, err = LoadRuleBundle(writeBundle(t, bad), contract)
	require.Error(t, err)
	require.Contains(t, err.Error(), "thresholds")
}

func TestLoadRuleBundleMissingFile(t *testing.T) {
	contract, err := vocab.Load()
	require.NoError(t, err)
	_, err = LoadRuleBundle(filepath.Join(t.TempDir(), "absent.yaml"), contract)
	require.Error(t, err)
}

package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
)

func validRule() Rule {
	return Rule{
		RuleID:       "rule-1",
		FamilyID:     FamilyToolWhitelist,
		Layer:        vocab.LayerL4,
		TenantID:     "tenant-a",
		AgentID:      "",
		Priority:     100,
		Enabled:      true,
		Thresholds:   Thresholds{0.85, 0.80, 0.75, 0.70},
		Weights:      Weights{1, 1, 1, 1},
		DecisionMode: DecisionModeMin,
		GlobalThresh: 0.8,
		CreatedAt:    time.Unix(0, 0),
	}
}

func TestAllFourteenFamiliesRegistered(t *testing.T) {
	want := []Family{
		FamilyToolWhitelist, FamilyToolParamConstraint, FamilyToolBlacklist,
		FamilyNetEgress, FamilyNetIngress, FamilyDataSensitivityFloor,
		FamilyDataVolumeCap, FamilyPIIExportBlock, FamilyResourceLocationPin,
		FamilyActorTypeRestriction, FamilyActionRestriction, FamilyAuthnRequirement,
		FamilyRateLimitContext, FamilyBulkOperationGuard,
	}
	assert.Len(t, Families, 14)
	for _, f := range want {
		assert.True(t, Families[f], "missing family %s", f)
	}
}

func TestIsTenantScoped(t *testing.T) {
	r := validRule()
	assert.True(t, r.IsTenantScoped())
	r.AgentID = "agent-1"
	assert.False(t, r.IsTenantScoped())
}

func TestHandleFromProjectsFields(t *testing.T) {
	r := validRule()
	r.AgentID = "agent-9"
	h := HandleFrom(&r)
	assert.Equal(t, r.RuleID, h.RuleID)
	assert.Equal(t, r.Priority, h.Priority)
	assert.Equal(t, r.Enabled, h.Enabled)
	assert.Equal(t, r.Thresholds, h.Thresholds)
	assert.Equal(t, r.Weights, h.Weights)
	assert.Equal(t, r.DecisionMode, h.DecisionMode)
	assert.Equal(t, r.GlobalThresh, h.GlobalThresh)
	assert.Equal(t, r.AgentID, h.AgentID)
}

func TestValidateOKRule(t *testing.T) {
	contract, err := vocab.Load()
	require.NoError(t, err)
	r := validRule()
	assert.NoError(t, Validate(&r, contract))
}

func TestValidateUnknownFamily(t *testing.T) {
	contract, _ := vocab.Load()
	r := validRule()
	r.FamilyID = Family("not_a_family")
	err := Validate(&r, contract)
	require.Error(t, err)
}

func TestValidateThresholdOutOfRange(t *testing.T) {
	contract, _ := vocab.Load()
	r := validRule()
	r.Thresholds[0] = 1.5
	err := Validate(&r, contract)
	require.Error(t, err)
}

func TestValidateNegativeWeight(t *testing.T) {
	contract, _ := vocab.Load()
	r := validRule()
	r.Weights[2] = -0.1
	err := Validate(&r, contract)
	require.Error(t, err)
}

func TestValidateUnknownDecisionMode(t *testing.T) {
	contract, _ := vocab.Load()
	r := validRule()
	r.DecisionMode = DecisionMode("median")
	err := Validate(&r, contract)
	require.Error(t, err)
}

func TestAnchorsZeroValueHasZeroCounts(t *testing.T) {
	var a Anchors
	for _, c := range a.Count {
		assert.Equal(t, 0, c)
	}
}

package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

func testAnchors() *rule.Anchors {
	a := &rule.Anchors{}
	for _, s := range vector.Slots {
		a.Vectors[s][0][0] = 1.0
		a.Count[s] = 1
	}
	return a
}

func testRule(id, tenant, agent string, priority int) *rule.Rule {
	return &rule.Rule{
		RuleID:       id,
		FamilyID:     rule.FamilyToolWhitelist,
		Layer:        vocab.LayerL4,
		TenantID:     tenant,
		AgentID:      agent,
		Priority:     priority,
		Enabled:      true,
		Thresholds:   rule.Thresholds{0.85, 0.80, 0.75, 0.70},
		DecisionMode: rule.DecisionModeMin,
	}
}

func TestInstallAndGetRules(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("r1", "t1", "a1", 10), testAnchors()))
	require.NoError(t, s.Install(testRule("r2", "t1", "a1", 100), testAnchors()))

	handles := s.GetRules("t1", "a1", vocab.LayerL4)
	require.Len(t, handles, 2)
	require.Equal(t, "r2", handles[0].RuleID, "higher priority first")
	require.Equal(t, "r1", handles[1].RuleID)
}

func TestInstallDuplicateRejected(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("r1", "t1", "a1", 10), testAnchors()))
	err := s.Install(testRule("r1", "t1", "a1", 10), testAnchors())
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindDuplicateRuleId))
}

func TestInstallRejectsEmptyAnchorSlot(t *testing.T) {
	s := New()
	a := testAnchors()
	a.Count[vector.SlotData] = 0
	err := s.Install(testRule("r1", "t1", "a1", 10), a)
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindInternalInconsistency))
}

func TestPriorityTiesAreFIFO(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%d", i)
		require.NoError(t, s.Install(testRule(id, "t1", "a1", 50), testAnchors()))
	}
	handles := s.GetRules("t1", "a1", vocab.LayerL4)
	require.Len(t, handles, 5)
	for i, h := range handles {
		require.Equal(t, fmt.Sprintf("r%d", i), h.RuleID)
	}
}

func TestScopeUnionTenantAndAgent(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("tenant-wide", "t1", "", 50), testAnchors()))
	require.NoError(t, s.Install(testRule("agent-only", "t1", "a1", 75), testAnchors()))
	require.NoError(t, s.Install(testRule("other-agent", "t1", "a2", 99), testAnchors()))

	handles := s.GetRules("t1", "a1", vocab.LayerL4)
	require.Len(t, handles, 2)
	require.Equal(t, "agent-only", handles[0].RuleID)
	require.Equal(t, "tenant-wide", handles[1].RuleID)
}

func TestDisabledRulesAreSkipped(t *testing.T) {
	s := New()
	r := testRule("r1", "t1", "a1", 10)
	r.Enabled = false
	require.NoError(t, s.Install(r, testAnchors()))
	require.Empty(t, s.GetRules("t1", "a1", vocab.LayerL4))
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("rA", "tenantA", "a1", 10), testAnchors()))

	require.Empty(t, s.GetRules("tenantB", "a1", vocab.LayerL4))
	require.Len(t, s.GetRules("tenantA", "a1", vocab.LayerL4), 1)
}

func TestLayerScoping(t *testing.T) {
	s := New()
	r := testRule("r1", "t1", "a1", 10)
	r.Layer = vocab.LayerL2
	require.NoError(t, s.Install(r, testAnchors()))

	require.Empty(t, s.GetRules("t1", "a1", vocab.LayerL4))
	require.Len(t, s.GetRules("t1", "a1", vocab.LayerL2), 1)
}

func TestRemoveAgentRules(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("r1", "t1", "a1", 10), testAnchors()))
	require.NoError(t, s.Install(testRule("r2", "t1", "a1", 20), testAnchors()))
	require.NoError(t, s.Install(testRule("r3", "t1", "a2", 30), testAnchors()))

	require.Equal(t, 2, s.RemoveAgentRules("t1", "a1"))
	require.Empty(t, s.GetRules("t1", "a1", vocab.LayerL4))
	require.Len(t, s.GetRules("t1", "a2", vocab.LayerL4), 1)

	_, err := s.GetAnchors("r1")
	require.True(t, guarderr.Is(err, guarderr.KindRuleNotFound))

	// Removing again is a no-op.
	require.Equal(t, 0, s.RemoveAgentRules("t1", "a1"))
}

func TestReinstallAfterRemoveObservesOneCopy(t *testing.T) {
	s := New()
	r := testRule("r1", "t1", "a1", 10)
	require.NoError(t, s.Install(r, testAnchors()))
	require.Equal(t, 1, s.RemoveAgentRules("t1", "a1"))
	require.NoError(t, s.Install(r, testAnchors()))

	handles := s.GetRules("t1", "a1", vocab.LayerL4)
	require.Len(t, handles, 1)
	require.Equal(t, "r1", handles[0].RuleID)
}

func TestGetAnchors(t *testing.T) {
	s := New()
	a := testAnchors()
	require.NoError(t, s.Install(testRule("r1", "t1", "a1", 10), a))

	got, err := s.GetAnchors("r1")
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestStats(t *testing.T) {
	s := New()
	require.NoError(t, s.Install(testRule("r1", "t1", "", 10), testAnchors()))
	require.NoError(t, s.Install(testRule("r2", "t1", "a1", 10), testAnchors()))
	require.NoError(t, s.Install(testRule("r3", "t2", "a1", 10), testAnchors()))

	st := s.Stats()
	require.Equal(t, 3, st.TotalRules)
	require.Equal(t, 1, st.TenantRules)
	require.Equal(t, 2, st.AgentRules)
	require.Equal(t, 2, st.Tables)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	for i := 0; i < 32; i++ {
		id := fmt.Sprintf("seed-%d", i)
		require.NoError(t, s.Install(testRule(id, "t1", "", i), testAnchors()))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 64; i++ {
				agent := fmt.Sprintf("a%d", w)
				id := fmt.Sprintf("w%d-r%d", w, i)
				_ = s.Install(testRule(id, "t1", agent, i), testAnchors())
				s.RemoveAgentRules("t1", agent)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 256; i++ {
				handles := s.GetRules("t1", "a0", vocab.LayerL4)
				// Tenant-scoped seeds are always visible.
				require.GreaterOrEqual(t, len(handles), 32)
			}
		}()
	}
	wg.Wait()
}

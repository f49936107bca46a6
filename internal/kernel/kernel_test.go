package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fencio-dev/guard-sub000/internal/domain/enforcement"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// unitVec returns a 32-dim unit vector with 1.0 at index idx.
func unitVec(idx int) vector.Slot32 {
	var v vector.Slot32
	v[idx%vector.SlotDim] = 1.0
	return v
}

// intentFrom builds a 128-dim intent whose four blocks are the given unit
// vectors.
func intentFrom(blocks [vector.NumSlots]vector.Slot32) *vector.Intent128 {
	var iv vector.Intent128
	for _, s := range vector.Slots {
		copy(iv.Block(s), blocks[s][:])
	}
	return &iv
}

// anchorsMatching builds anchors whose first entry per slot exactly equals
// the corresponding intent block (sim 1.0), padded with a distinct second
// anchor to exercise the max-over-anchors rule.
func anchorsMatching(blocks [vector.NumSlots]vector.Slot32) *rule.Anchors {
	a := &rule.Anchors{}
	for _, s := range vector.Slots {
		a.Vectors[s][0] = blocks[s]
		a.Vectors[s][1] = unitVec(int(s) + 17)
		a.Count[s] = 2
	}
	return a
}

func minHandle(th rule.Thresholds) *rule.Handle {
	return &rule.Handle{
		RuleID:       "r1",
		Priority:     50,
		Enabled:      true,
		Thresholds:   th,
		DecisionMode: rule.DecisionModeMin,
	}
}

func TestCompareExactMatchAllows(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	anchors := anchorsMatching(blocks)

	cmp, err := Compare(iv, anchors, minHandle(rule.Thresholds{0.85, 0.80, 0.75, 0.70}))
	require.NoError(t, err)
	require.Equal(t, enforcement.Allow, cmp.Decision)
	for _, s := range vector.Slots {
		require.InDelta(t, 1.0, float64(cmp.Sims[s]), 1e-6)
	}
}

func TestCompareSingleSlotBelowThresholdBlocks(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	anchors := anchorsMatching(blocks)
	// Replace the resource anchors with orthogonal vectors: sim drops to 0.
	anchors.Vectors[vector.SlotResource][0] = unitVec(9)
	anchors.Vectors[vector.SlotResource][1] = unitVec(10)

	cmp, err := Compare(iv, anchors, minHandle(rule.Thresholds{0.85, 0.80, 0.75, 0.70}))
	require.NoError(t, err)
	require.Equal(t, enforcement.Block, cmp.Decision)
	require.Less(t, cmp.Sims[vector.SlotResource], float32(0.80))
	// The other three slots still match exactly.
	require.InDelta(t, 1.0, float64(cmp.Sims[vector.SlotAction]), 1e-6)
}

func TestCompareZeroThresholdsAlwaysAllow(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	// Anchors entirely orthogonal to the intent.
	orthogonal := [vector.NumSlots]vector.Slot32{unitVec(20), unitVec(21), unitVec(22), unitVec(23)}
	anchors := anchorsMatching(orthogonal)

	cmp, err := Compare(iv, anchors, minHandle(rule.Thresholds{0, 0, 0, 0}))
	require.NoError(t, err)
	require.Equal(t, enforcement.Allow, cmp.Decision)
}

func TestCompareUnitThresholdsRequireExactMatch(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	h := minHandle(rule.Thresholds{1, 1, 1, 1})

	cmp, err := Compare(iv, anchorsMatching(blocks), h)
	require.NoError(t, err)
	require.Equal(t, enforcement.Allow, cmp.Decision)

	near := blocks
	near[vector.SlotData] = unitVec(12)
	cmp, err = Compare(iv, anchorsMatching(near), h)
	require.NoError(t, err)
	require.Equal(t, enforcement.Block, cmp.Decision)
}

func TestCompareMaxOverAnchors(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	a := &rule.Anchors{}
	for _, s := range vector.Slots {
		// First anchor orthogonal, second the exact match: max must win.
		a.Vectors[s][0] = unitVec(int(s) + 20)
		a.Vectors[s][1] = blocks[s]
		a.Count[s] = 2
	}

	cmp, err := Compare(iv, a, minHandle(rule.Thresholds{0.9, 0.9, 0.9, 0.9}))
	require.NoError(t, err)
	require.Equal(t, enforcement.Allow, cmp.Decision)
}

func TestComparePaddingRowsNeverRead(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	a := &rule.Anchors{}
	for _, s := range vector.Slots {
		a.Vectors[s][0] = unitVec(int(s) + 20) // orthogonal, sim 0
		a.Count[s] = 1
		// A would-be exact match sits in the padding region; it must be
		// invisible to the kernel.
		a.Vectors[s][1] = blocks[s]
	}

	cmp, err := Compare(iv, a, minHandle(rule.Thresholds{0.5, 0.5, 0.5, 0.5}))
	require.NoError(t, err)
	require.Equal(t, enforcement.Block, cmp.Decision)
	for _, s := range vector.Slots {
		require.InDelta(t, 0.0, float64(cmp.Sims[s]), 1e-6)
	}
}

func TestCompareZeroAnchorCountIsInternalInconsistency(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	a := anchorsMatching(blocks)
	a.Count[vector.SlotRisk] = 0

	_, err := Compare(iv, a, minHandle(rule.Thresholds{}))
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindInternalInconsistency))
}

func TestWeightedAvgDecision(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	a := anchorsMatching(blocks)
	// Break the risk slot so its sim is 0; the weighted mean of
	// {1,1,1,0} with equal weights is 0.75.
	a.Vectors[vector.SlotRisk][0] = unitVec(30)
	a.Vectors[vector.SlotRisk][1] = unitVec(31)

	h := &rule.Handle{
		RuleID:       "r-wavg",
		Weights:      rule.Weights{1, 1, 1, 1},
		DecisionMode: rule.DecisionModeWeightedAvg,
		GlobalThresh: 0.70,
	}
	cmp, err := Compare(iv, a, h)
	require.NoError(t, err)
	require.Equal(t, enforcement.Allow, cmp.Decision)

	h.GlobalThresh = 0.80
	cmp, err = Compare(iv, a, h)
	require.NoError(t, err)
	require.Equal(t, enforcement.Block, cmp.Decision)
}

func TestWeightedAvgZeroWeightsBlocks(t *testing.T) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	h := &rule.Handle{
		RuleID:       "r-zero-w",
		Weights:      rule.Weights{0, 0, 0, 0},
		DecisionMode: rule.DecisionModeWeightedAvg,
		GlobalThresh: 0.0,
	}
	cmp, err := Compare(iv, anchorsMatching(blocks), h)
	require.NoError(t, err)
	require.Equal(t, enforcement.Block, cmp.Decision)
}

func BenchmarkCompare(b *testing.B) {
	blocks := [vector.NumSlots]vector.Slot32{unitVec(0), unitVec(1), unitVec(2), unitVec(3)}
	iv := intentFrom(blocks)
	a := &rule.Anchors{}
	for _, s := range vector.Slots {
		for i := 0; i < vector.MaxAnchorsPerSlot; i++ {
			a.Vectors[s][i] = unitVec(i + int(s))
		}
		a.Count[s] = vector.MaxAnchorsPerSlot
	}
	h := minHandle(rule.Thresholds{0.85, 0.80, 0.75, 0.70})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compare(iv, a, h); err != nil {
			b.Fatal(err)
		}
	}
}

// Package kernel implements the Comparison Kernel: the pure,
// non-suspending computation of per-slot similarity between one encoded
// intent and one rule's pre-encoded anchor arrays, and the rule-level
// ALLOW/BLOCK verdict under the rule's decision mode.
package kernel

import (
	"fmt"

	"github.com/fencio-dev/guard-sub000/internal/domain/enforcement"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// Comparison is the kernel's output for one (intent, rule) pair: the four
// slot similarities and whether this individual rule is satisfied.
type Comparison struct {
	Decision enforcement.Decision
	Sims     [vector.NumSlots]float32
}

// Compare computes the per-slot similarity tuple and the rule verdict.
//
// Per slot, the similarity is the maximum dot product between the intent's
// 32-dim block and the slot's count valid anchor vectors; all vectors are
// unit-norm so the dot product is cosine similarity. Padding rows at index
// >= count are never read.
//
// A zero anchor count on any slot is a precondition violation and returns
// an InternalInconsistency error; the caller treats it as BLOCK.
func Compare(iv *vector.Intent128, anchors *rule.Anchors, h *rule.Handle) (Comparison, error) {
	var out Comparison

	for _, s := range vector.Slots {
		n := anchors.Count[s]
		if n < 1 || n > vector.MaxAnchorsPerSlot {
			return out, guarderr.New(guarderr.KindInternalInconsistency,
				fmt.Sprintf("anchor count %d for slot %s outside [1,%d]", n, s, vector.MaxAnchorsPerSlot))
		}
		block := iv.Block(s)
		best := float32(-1)
		for i := 0; i < n; i++ {
			if d := vector.Dot(block, anchors.Vectors[s][i][:]); d > best {
				best = d
			}
		}
		out.Sims[s] = best
	}

	out.Decision = decide(h, out.Sims)
	return out, nil
}

// decide applies the rule's decision mode to the slot similarities.
func decide(h *rule.Handle, sims [vector.NumSlots]float32) enforcement.Decision {
	switch h.DecisionMode {
	case rule.DecisionModeMin:
		for _, s := range vector.Slots {
			// A zero threshold is met by any similarity, including a
			// negative cosine.
			if h.Thresholds[s] > 0 && sims[s] < h.Thresholds[s] {
				return enforcement.Block
			}
		}
		return enforcement.Allow
	case rule.DecisionModeWeightedAvg:
		var weighted, total float32
		for _, s := range vector.Slots {
			weighted += h.Weights[s] * sims[s]
			total += h.Weights[s]
		}
		if total == 0 {
			// All-zero weights cannot express a preference; fail closed.
			return enforcement.Block
		}
		if weighted/total >= h.GlobalThresh {
			return enforcement.Allow
		}
		return enforcement.Block
	default:
		return enforcement.Block
	}
}

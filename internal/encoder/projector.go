package encoder

import (
	"math"
	"math/rand"
	"sync"

	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// BaseDim is the native dimensionality of the upstream embedding model.
// Slot projection matrices map from this down to vector.SlotDim.
const BaseDim = 384

// slotSeed returns the fixed seed used to build slot s's projection
// matrix. Regenerating the matrix for a slot must always reproduce the
// same entries, or previously installed anchor vectors become
// incomparable to freshly encoded intents.
func slotSeed(s vector.Slot) int64 {
	return 42 + int64(s)
}

// achlioptasEntry draws one sparse random projection entry from
// {+sqrt(3), 0, -sqrt(3)} with probabilities {1/6, 2/3, 1/6} (Achlioptas,
// "Database-friendly random projections").
func achlioptasEntry(r *rand.Rand) float32 {
	sqrt3 := float32(math.Sqrt(3))
	switch x := r.Float64(); {
	case x < 1.0/6.0:
		return sqrt3
	case x < 5.0/6.0:
		return 0
	default:
		return -sqrt3
	}
}

// buildMatrix constructs the SlotDim x BaseDim projection matrix for one
// slot, row-major: matrix[i][j] projects base dimension j into output
// dimension i.
func buildMatrix(seed int64) [vector.SlotDim][BaseDim]float32 {
	r := rand.New(rand.NewSource(seed))
	var m [vector.SlotDim][BaseDim]float32
	for i := 0; i < vector.SlotDim; i++ {
		for j := 0; j < BaseDim; j++ {
			m[i][j] = achlioptasEntry(r)
		}
	}
	return m
}

var (
	matricesOnce sync.Once
	matrices     [vector.NumSlots][vector.SlotDim][BaseDim]float32
)

func ensureMatrices() {
	matricesOnce.Do(func() {
		for _, s := range vector.Slots {
			matrices[s] = buildMatrix(slotSeed(s))
		}
	})
}

// Project maps a BaseDim embedding down to a raw (not yet normalized)
// vector.Slot32 for slot s using that slot's fixed sparse random
// projection matrix.
func Project(s vector.Slot, embedding []float32) (vector.Slot32, error) {
	var out vector.Slot32
	if len(embedding) != BaseDim {
		return out, errDimMismatch(len(embedding))
	}
	ensureMatrices()
	m := &matrices[s]
	for i := 0; i < vector.SlotDim; i++ {
		var acc float32
		row := &m[i]
		for j := 0; j < BaseDim; j++ {
			acc += row[j] * embedding[j]
		}
		out[i] = acc
	}
	return out, nil
}

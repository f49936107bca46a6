// Package vector defines the fixed-width float32 vector shapes shared by the
// Encoder and Comparison Kernel, along with the handful of primitives
// (L2 normalization, dot product) that every slot-wise computation in this
// module builds on.
package vector

import "math"

const (
	// SlotDim is the width of a single semantic slot (action, resource, data, risk).
	SlotDim = 32

	// NumSlots is the number of concatenated slots in an intent vector.
	NumSlots = 4

	// IntentDim is the full concatenated intent vector width.
	IntentDim = SlotDim * NumSlots

	// MaxAnchorsPerSlot is the padded capacity of a rule's per-slot anchor array.
	MaxAnchorsPerSlot = 16
)

// Slot identifies one of the four fixed semantic facets. Order is a hard
// contract: changing it is a breaking wire-format and semantic change.
type Slot int

const (
	SlotAction Slot = iota
	SlotResource
	SlotData
	SlotRisk
)

// Seed returns the projection-matrix seed bound to this slot by the
// vocabulary contract: action 42, resource 43, data 44, risk 45.
func (s Slot) Seed() int64 {
	return int64(42 + int(s))
}

func (s Slot) String() string {
	switch s {
	case SlotAction:
		return "action"
	case SlotResource:
		return "resource"
	case SlotData:
		return "data"
	case SlotRisk:
		return "risk"
	default:
		return "unknown"
	}
}

// Slots is the fixed, ordered list of all four slots.
var Slots = [NumSlots]Slot{SlotAction, SlotResource, SlotData, SlotRisk}

// Slot32 is a single 32-dim unit (or zero-safe) vector.
type Slot32 [SlotDim]float32

// Intent128 is the concatenation of the four slot blocks, in fixed order.
type Intent128 [IntentDim]float32

// Block returns the 32-dim block for the given slot as a slice view.
func (v *Intent128) Block(s Slot) []float32 {
	start := int(s) * SlotDim
	return v[start : start+SlotDim]
}

// Dot computes the dot product of two equal-length float32 slices. Callers
// are responsible for ensuring both slices are unit-norm if cosine similarity
// semantics are desired (dot product of unit vectors equals cosine similarity).
func Dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 (Euclidean) norm of a float32 slice, computed in
// float64 for intermediate precision and returned as float32 per the
// numeric contract (inputs and outputs are 32-bit floats).
func Norm(v []float32) float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sumSq))
}

// L2Normalize divides v by its norm in place and returns true. If the norm
// is exactly zero or NaN, it leaves v untouched and returns false so
// the caller can substitute the canonical zero-safe unit vector instead.
func L2Normalize(v []float32) bool {
	n := Norm(v)
	if n == 0 || math.IsNaN(float64(n)) {
		return false
	}
	for i := range v {
		v[i] /= n
	}
	return true
}

// Package vocab implements the Vocabulary Contract: the versioned,
// process-wide publication of which enumerated strings are valid for each
// Intent/Rule slot, which projection seeds bind to which slot, and the
// canonical zero-safe unit vector substituted when a slot's pre-normalization
// norm is zero. Exactly one Contract is loaded per process, at startup, and
// is read-only thereafter: "swapping requires
// restart".
package vocab

import (
	"fmt"
	"sort"

	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// Version identifies the vocabulary contract revision. Changing slot
// layout, dimension, or seed bindings is a breaking change that must bump
// this version.
const Version = "v1"

// Layer is one of the seven coarse enforcement stages, L0 through L6.
type Layer string

const (
	LayerL0 Layer = "L0"
	LayerL1 Layer = "L1"
	LayerL2 Layer = "L2"
	LayerL3 Layer = "L3"
	LayerL4 Layer = "L4"
	LayerL5 Layer = "L5"
	LayerL6 Layer = "L6"
)

// Layers is the fixed, closed set of valid layers.
var Layers = []Layer{LayerL0, LayerL1, LayerL2, LayerL3, LayerL4, LayerL5, LayerL6}

// Contract publishes the vocabulary every Encoder instance must load
// identically. It has no mutable state after construction.
type Contract struct {
	version string

	actorTypes    map[string]bool
	actions       map[string]bool
	resourceTypes map[string]bool
	locations     map[string]bool
	sensitivities map[string]bool
	volumes       map[string]bool
	authnValues   map[string]bool
	layers        map[Layer]bool

	defaultThresholds [vector.NumSlots]float32
	zeroSafe          [vector.NumSlots]vector.Slot32
}

// defaultThresholds returns the per-rule-overridable defaults:
// action 0.85, resource 0.80, data 0.75, risk 0.70.
func defaultThresholds() [vector.NumSlots]float32 {
	return [vector.NumSlots]float32{0.85, 0.80, 0.75, 0.70}
}

func toSet(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Load constructs the v1 vocabulary contract. There is exactly one shipped
// contract version; Load never fails in v1 but returns an error to keep the
// constructor signature stable across future contract versions.
func Load() (*Contract, error) {
	c := &Contract{
		version:       Version,
		actorTypes:    toSet("user", "service", "llm", "agent"),
		actions:       toSet("read", "write", "delete", "export", "execute", "update"),
		resourceTypes: toSet("database", "file", "api"),
		locations:     toSet("local", "cloud"),
		sensitivities: toSet("public", "internal", "confidential"),
		volumes:       toSet("single", "bulk"),
		authnValues:   toSet("required", "not_required"),
		layers: map[Layer]bool{
			LayerL0: true, LayerL1: true, LayerL2: true, LayerL3: true,
			LayerL4: true, LayerL5: true, LayerL6: true,
		},
		defaultThresholds: defaultThresholds(),
	}
	for _, s := range vector.Slots {
		c.zeroSafe[s] = canonicalZeroSafeVector(s)
	}
	return c, nil
}

// Version returns the loaded contract's version string.
func (c *Contract) Version() string { return c.version }

// IsValidActorType reports whether v is a vocabulary-recognized actor type.
func (c *Contract) IsValidActorType(v string) bool { return c.actorTypes[v] }

// IsValidAction reports whether v is a vocabulary-recognized action.
func (c *Contract) IsValidAction(v string) bool { return c.actions[v] }

// IsValidResourceType reports whether v is a vocabulary-recognized resource type.
func (c *Contract) IsValidResourceType(v string) bool { return c.resourceTypes[v] }

// IsValidLocation reports whether v is a vocabulary-recognized resource location.
func (c *Contract) IsValidLocation(v string) bool { return c.locations[v] }

// IsValidSensitivity reports whether v is a vocabulary-recognized data sensitivity.
func (c *Contract) IsValidSensitivity(v string) bool { return c.sensitivities[v] }

// IsValidVolume reports whether v is a vocabulary-recognized data volume.
func (c *Contract) IsValidVolume(v string) bool { return c.volumes[v] }

// IsValidAuthn reports whether v is a vocabulary-recognized authn requirement.
func (c *Contract) IsValidAuthn(v string) bool { return c.authnValues[v] }

// IsValidLayer reports whether l is one of the seven closed layers.
func (c *Contract) IsValidLayer(l Layer) bool { return c.layers[l] }

// SortedSensitivities returns values in lexicographic order, matching the
// canonicalization rule that multi-valued fields are emitted sorted so
// set-valued inputs are permutation-invariant.
func SortedSensitivities(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

// DefaultThreshold returns the default per-rule-overridable threshold for slot s.
func (c *Contract) DefaultThreshold(s vector.Slot) float32 {
	return c.defaultThresholds[s]
}

// ZeroSafeVector returns the canonical zero-safe unit vector for slot s,
// substituted by the Encoder whenever a slot's pre-normalization norm is
// zero.
func (c *Contract) ZeroSafeVector(s vector.Slot) vector.Slot32 {
	return c.zeroSafe[s]
}

// canonicalZeroSafeVector deterministically derives a fixed unit vector for
// slot s: the first basis vector e_0, rotated by a slot-dependent fixed
// offset so that the four slots' zero-safe vectors are distinguishable
// (no two slots collapse to the same vector) while remaining pure functions
// of the slot identity alone, with no external randomness.
func canonicalZeroSafeVector(s vector.Slot) vector.Slot32 {
	var v vector.Slot32
	idx := int(s) % vector.SlotDim
	v[idx] = 1.0
	return v
}

// String renders the contract for logs/diagnostics.
func (c *Contract) String() string {
	return fmt.Sprintf("vocab.Contract{version=%s}", c.version)
}

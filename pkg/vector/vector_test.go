package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSeeds(t *testing.T) {
	assert.Equal(t, int64(42), SlotAction.Seed())
	assert.Equal(t, int64(43), SlotResource.Seed())
	assert.Equal(t, int64(44), SlotData.Seed())
	assert.Equal(t, int64(45), SlotRisk.Seed())
}

func TestIntent128Block(t *testing.T) {
	var v Intent128
	for i := range v {
		v[i] = float32(i)
	}
	require.Len(t, v.Block(SlotResource), SlotDim)
	assert.Equal(t, float32(SlotDim), v.Block(SlotResource)[0])
	assert.Equal(t, float32(2*SlotDim), v.Block(SlotData)[0])
}

func TestDotAndNorm(t *testing.T) {
	a := []float32{3, 4}
	assert.Equal(t, float32(5), Norm(a))
	b := []float32{1, 0}
	c := []float32{0, 1}
	assert.Equal(t, float32(0), Dot(b, c))
	assert.Equal(t, float32(1), Dot(b, b))
}

func TestL2NormalizeZeroVector(t *testing.T) {
	v := make([]float32, SlotDim)
	ok := L2Normalize(v)
	assert.False(t, ok)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestL2NormalizeUnit(t *testing.T) {
	v := []float32{3, 4}
	ok := L2Normalize(v)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, float64(Norm(v)), 1e-6)
}

package guarderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindEmbedderFailure, "embedder unavailable", cause)
	assert.True(t, Is(err, KindEmbedderFailure))
	assert.False(t, Is(err, KindMalformedIntent))
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	err := New(KindRuleNotFound, "no such rule")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindRuleNotFound, kind)

	wrapped := fmt.Errorf("context: %w", err)
	kind, ok = KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindRuleNotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

// Package memory provides in-memory implementations of outbound ports:
// a deterministic stand-in Embedder, a templated anchor LLM, and the GCRA
// installation rate limiter. They make the module fully exercisable
// without any network collaborator.
package memory

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/fencio-dev/guard-sub000/internal/encoder"
)

// DeterministicEmbedder is a pinned, seeded, pure-function Embedder: the
// same text always yields the bitwise-identical base vector, matching the
// determinism contract a pinned production model version provides.
// Texts sharing vocabulary terms share vector mass, so
// similar canonical texts land near each other after projection.
type DeterministicEmbedder struct{}

// NewDeterministicEmbedder creates the stand-in embedder.
func NewDeterministicEmbedder() DeterministicEmbedder {
	return DeterministicEmbedder{}
}

// Dim reports the base embedding width for projection-matrix sizing.
func (DeterministicEmbedder) Dim() int { return encoder.BaseDim }

// Embed hashes each whitespace-delimited token into a dense pseudo-random
// direction and sums them, so texts sharing tokens produce correlated
// vectors and disjoint texts produce near-orthogonal ones.
func (DeterministicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float32, encoder.BaseDim)
	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		state := xxhash.Sum64String(text[start:end])
		for i := range out {
			// xorshift64 over the token hash gives a cheap, stable stream.
			state ^= state << 13
			state ^= state >> 7
			state ^= state << 17
			out[i] += float32(int64(state)) / float32(1<<63)
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' || text[i] == '|' {
			flush(i)
			start = i + 1
		}
	}
	flush(len(text))
	return out, nil
}

var _ encoder.Embedder = DeterministicEmbedder{}

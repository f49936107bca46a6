package encoder

import (
	"context"
	"fmt"

	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// Embedder is the outbound port to whatever model turns canonical slot
// text into a BaseDim-wide embedding. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

func errDimMismatch(got int) error {
	return guarderr.New(guarderr.KindEmbedderFailure,
		fmt.Sprintf("embedder returned %d dims, want %d", got, BaseDim))
}

func wrapEmbedderErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := guarderr.KindOf(err); ok {
		return err
	}
	return guarderr.Wrap(guarderr.KindEmbedderFailure, "embedder call failed", err)
}

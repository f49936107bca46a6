package encoder

import (
	"context"

	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// EncodeText embeds and projects a single piece of canonical text into
// slot s's unit vector. Used both for intents (one call per slot) and for
// anchor strings produced by the Anchor Builder. A zero-norm projection
// (an empty slot text, for one: every Data field is optional) is replaced
// with the contract's canonical zero-safe unit vector for the slot, so
// encoding stays a total function of vocabulary-valid input.
func EncodeText(ctx context.Context, emb Embedder, contract *vocab.Contract, s vector.Slot, text string) (vector.Slot32, error) {
	var out vector.Slot32
	base, err := emb.Embed(ctx, text)
	if err != nil {
		return out, wrapEmbedderErr(err)
	}
	out, err = Project(s, base)
	if err != nil {
		return out, err
	}
	if !vector.L2Normalize(out[:]) {
		return contract.ZeroSafeVector(s), nil
	}
	return out, nil
}

// EncodeIntent canonicalizes and encodes an Intent into its full 128-dim
// representation, one 32-dim block per slot. Every block is unit-norm:
// either the normalized projection or the slot's zero-safe vector.
func EncodeIntent(ctx context.Context, emb Embedder, contract *vocab.Contract, in *intent.Intent) (vector.Intent128, error) {
	var out vector.Intent128
	texts := CanonicalizeIntent(in)
	for _, s := range vector.Slots {
		block, err := EncodeText(ctx, emb, contract, s, texts[s])
		if err != nil {
			return out, err
		}
		copy(out[s*vector.SlotDim:(s+1)*vector.SlotDim], block[:])
	}
	return out, nil
}

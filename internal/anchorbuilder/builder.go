// Package anchorbuilder converts an installed rule of any family into four
// ordered lists of natural-language anchor strings, one per slot, ready to
// be encoded into the rule's anchor arrays. A single structured
// LLM request serves every family; responses are schema-validated, run
// through a vocabulary guard, and content-hash cached.
package anchorbuilder

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/encoder"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// LLMProvider is the outbound port to the structured-output LLM that turns
// a serialized rule into anchor strings.
// Generate must return JSON conforming to responseSchema; untyped text is
// rejected by the caller.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, responseSchema json.RawMessage) (json.RawMessage, error)
}

// Texts holds the anchor strings for one rule, one ordered list per slot.
type Texts struct {
	Action   []string `json:"action"`
	Resource []string `json:"resource"`
	Data     []string `json:"data"`
	Risk     []string `json:"risk"`
}

// Slot returns the list for slot s.
func (t *Texts) Slot(s vector.Slot) []string {
	switch s {
	case vector.SlotAction:
		return t.Action
	case vector.SlotResource:
		return t.Resource
	case vector.SlotData:
		return t.Data
	default:
		return t.Risk
	}
}

// Builder issues anchor-generation requests and caches results by content
// hash. Safe for concurrent use.
type Builder struct {
	llm     LLMProvider
	guard   *vocabGuard
	version string

	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[uint64]*list.Element
}

type builderCacheEntry struct {
	key   uint64
	texts *Texts
}

// Option configures a Builder.
type Option func(*Builder)

// WithCacheCapacity bounds the anchor cache; non-positive disables caching.
func WithCacheCapacity(n int) Option {
	return func(b *Builder) { b.cap = n }
}

// WithVersionTag changes the cache-key version tag, forcing regeneration of
// previously cached rules.
func WithVersionTag(v string) Option {
	return func(b *Builder) { b.version = v }
}

// New creates a Builder around the given LLM provider.
func New(llm LLMProvider, opts ...Option) (*Builder, error) {
	guard, err := newVocabGuard()
	if err != nil {
		return nil, fmt.Errorf("compiling anchor vocabulary guard: %w", err)
	}
	b := &Builder{
		llm:     llm,
		guard:   guard,
		version: "v1",
		cap:     1024,
		ll:      list.New(),
		items:   make(map[uint64]*list.Element),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildRuleAnchors produces the four anchor-string lists for r. Any LLM
// failure (timeout, schema violation, empty list, vocabulary violation in
// the returned text) is a hard AnchorGenerationFailure: the rule must not
// be installed with fallback anchors.
func (b *Builder) BuildRuleAnchors(ctx context.Context, r *rule.Rule) (*Texts, error) {
	key, err := b.cacheKey(r)
	if err != nil {
		return nil, err
	}
	if texts := b.cacheGet(key); texts != nil {
		return texts, nil
	}

	raw, err := b.llm.Generate(ctx, buildPrompt(r), responseSchemaJSON)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure,
			"anchor generation call failed for rule "+r.RuleID, err)
	}

	texts, err := validateResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := b.guard.check(ctx, texts); err != nil {
		return nil, err
	}

	b.cachePut(key, texts)
	return texts, nil
}

// cacheKey hashes (version, family_id, canonical rule JSON). Go's JSON
// encoder emits struct fields in declaration order, so marshaling the rule
// is canonical for identical inputs.
func (b *Builder) cacheKey(r *rule.Rule) (uint64, error) {
	canonical, err := json.Marshal(r)
	if err != nil {
		return 0, guarderr.Wrap(guarderr.KindAnchorGenerationFailure, "serializing rule "+r.RuleID, err)
	}
	h := xxhash.New()
	_, _ = h.WriteString(b.version)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(r.FamilyID))
	_, _ = h.WriteString("\x00")
	_, _ = h.Write(canonical)
	return h.Sum64(), nil
}

func (b *Builder) cacheGet(key uint64) *Texts {
	if b.cap <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if el, ok := b.items[key]; ok {
		b.ll.MoveToFront(el)
		return el.Value.(*builderCacheEntry).texts
	}
	return nil
}

func (b *Builder) cachePut(key uint64, texts *Texts) {
	if b.cap <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if el, ok := b.items[key]; ok {
		b.ll.MoveToFront(el)
		return
	}
	el := b.ll.PushFront(&builderCacheEntry{key: key, texts: texts})
	b.items[key] = el
	if b.ll.Len() > b.cap {
		oldest := b.ll.Back()
		if oldest != nil {
			b.ll.Remove(oldest)
			delete(b.items, oldest.Value.(*builderCacheEntry).key)
		}
	}
}

// CacheLen reports the number of cached anchor sets, for metrics and tests.
func (b *Builder) CacheLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ll.Len()
}

// buildPrompt assembles the single LLM request serving every rule family:
// vocabulary summary, family id, serialized rule, and the fixed schema
// expectations.
func buildPrompt(r *rule.Rule) string {
	serialized, _ := json.Marshal(r)
	var sb strings.Builder
	sb.WriteString("You are generating semantic anchor strings for a policy rule.\n\n")
	sb.WriteString("Vocabulary (all anchor text must stay within these terms where applicable):\n")
	sb.WriteString("  actions: read, write, delete, export, execute, update\n")
	sb.WriteString("  actor types: user, service, llm, agent\n")
	sb.WriteString("  resource types: database, file, api; locations: local, cloud\n")
	sb.WriteString("  sensitivities: public, internal, confidential; volumes: single, bulk\n")
	sb.WriteString("  authn: required, not_required\n\n")
	sb.WriteString("Rule family: ")
	sb.WriteString(string(r.FamilyID))
	sb.WriteString("\nRule:\n")
	sb.Write(serialized)
	sb.WriteString("\n\nProduce JSON with keys action, resource, data, risk. Each key maps to ")
	sb.WriteString("2-4 lowercase strings of 5-15 words describing acceptable intents for ")
	sb.WriteString("that facet of the rule.")
	return sb.String()
}

// EncodeAnchors encodes a rule's anchor texts into its padded per-slot
// vector arrays via the slot-bound projection.
// Lists longer than the padded capacity are truncated to the first
// MaxAnchorsPerSlot entries; the schema bounds lists at 4 so truncation
// only guards against misbehaving callers.
func EncodeAnchors(ctx context.Context, emb encoder.Embedder, contract *vocab.Contract, texts *Texts) (*rule.Anchors, error) {
	out := &rule.Anchors{}
	for _, s := range vector.Slots {
		listForSlot := texts.Slot(s)
		if len(listForSlot) == 0 {
			return nil, guarderr.New(guarderr.KindAnchorGenerationFailure,
				"no anchors for slot "+s.String())
		}
		if len(listForSlot) > vector.MaxAnchorsPerSlot {
			listForSlot = listForSlot[:vector.MaxAnchorsPerSlot]
		}
		for i, text := range listForSlot {
			v, err := encoder.EncodeText(ctx, emb, contract, s, text)
			if err != nil {
				return nil, err
			}
			out.Vectors[s][i] = v
		}
		out.Count[s] = len(listForSlot)
	}
	return out, nil
}

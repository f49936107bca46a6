package anchorbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// guardCostBudget is the CEL runtime cost limit for one guard evaluation.
const guardCostBudget = 10_000

// guardEvalTimeout bounds a single guard evaluation. Guard programs are
// tiny; this only protects against pathological inputs.
const guardEvalTimeout = 500 * time.Millisecond

// guardInterruptFreq is how often (in comprehension iterations) context
// cancellation is checked during evaluation.
const guardInterruptFreq = 100

// guardExpression is the compiled-once check applied to every anchor
// string after canonicalization: the string must be 5-15 words, and any
// "key: value" pair it contains whose key names a vocabulary enum must use
// a value from that enum.
const guardExpression = `
words >= 5 && words <= 15 &&
fields.all(k, !(k in vocab) || fields[k] in vocab[k])
`

// guardVocab mirrors the vocabulary contract's enumerations for the guard
// program. Keys are the canonical field names anchor text may reference.
var guardVocab = map[string][]string{
	"action":        {"read", "write", "delete", "export", "execute", "update"},
	"actor_type":    {"user", "service", "llm", "agent"},
	"resource_type": {"database", "file", "api"},
	"location":      {"local", "cloud"},
	"sensitivity":   {"public", "internal", "confidential"},
	"volume":        {"single", "bulk"},
	"authn":         {"required", "not_required"},
}

// vocabGuard sandbox-evaluates the guard expression per anchor string,
// with the same cost/interrupt discipline applied to every untrusted
// expression evaluation in this codebase.
type vocabGuard struct {
	prg cel.Program
}

func newVocabGuard() (*vocabGuard, error) {
	env, err := cel.NewEnv(
		cel.Variable("words", cel.IntType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("vocab", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard environment: %w", err)
	}
	ast, issues := env.Compile(guardExpression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling guard expression: %w", issues.Err())
	}
	prg, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(guardCostBudget),
		cel.InterruptCheckFrequency(guardInterruptFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("building guard program: %w", err)
	}
	return &vocabGuard{prg: prg}, nil
}

// check runs the guard over every anchor string in texts, failing on the
// first violation.
func (g *vocabGuard) check(ctx context.Context, texts *Texts) error {
	for slotName, list := range map[string][]string{
		"action":   texts.Action,
		"resource": texts.Resource,
		"data":     texts.Data,
		"risk":     texts.Risk,
	} {
		for _, text := range list {
			ok, err := g.checkOne(ctx, text)
			if err != nil {
				return guarderr.Wrap(guarderr.KindAnchorGenerationFailure,
					"anchor guard evaluation failed for slot "+slotName, err)
			}
			if !ok {
				return guarderr.New(guarderr.KindAnchorGenerationFailure,
					fmt.Sprintf("anchor text for slot %s violates vocabulary: %q", slotName, text))
			}
		}
	}
	return nil
}

func (g *vocabGuard) checkOne(ctx context.Context, text string) (bool, error) {
	evalCtx, cancel := context.WithTimeout(ctx, guardEvalTimeout)
	defer cancel()

	out, _, err := g.prg.ContextEval(evalCtx, map[string]interface{}{
		"words":  len(strings.Fields(text)),
		"fields": extractFields(text),
		"vocab":  guardVocab,
	})
	if err != nil {
		return false, err
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("guard expression returned non-boolean %T", out.Value())
	}
	return allowed, nil
}

// extractFields pulls "key: value" pairs out of an anchor string, the same
// rendering the canonicalizer emits for intents, so the guard sees anchor
// text through the encoder's eyes. Segments without a colon contribute
// nothing.
func extractFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, segment := range strings.Split(text, "|") {
		k, v, found := strings.Cut(segment, ":")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" || strings.ContainsRune(k, ' ') {
			continue
		}
		fields[k] = v
	}
	return fields
}

// Package engine orchestrates a single enforcement request end-to-end:
// resolve scope, encode the intent once, walk the
// priority-ordered rule set, compare against each rule, and short-circuit
// on the first BLOCK. It also owns the installation pipeline: anchor
// generation and encoding complete before the store lock is ever taken,
// so writers never hold locks during network I/O.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/fencio-dev/guard-sub000/internal/anchorbuilder"
	"github.com/fencio-dev/guard-sub000/internal/domain/enforcement"
	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/encoder"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/internal/kernel"
	"github.com/fencio-dev/guard-sub000/internal/store"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// Default call deadlines.
const (
	DefaultEnforceDeadline = 50 * time.Millisecond
	DefaultInstallDeadline = 10 * time.Second
)

// InstallFailure names one rule that could not be installed and why.
type InstallFailure struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// InstallResult summarizes a batch installation.
type InstallResult struct {
	Installed int              `json:"installed"`
	Failures  []InstallFailure `json:"failures,omitempty"`
}

// Engine wires the five core components behind the exposed operations.
// All collaborators are explicit constructor arguments; there are no
// hidden singletons.
type Engine struct {
	contract *vocab.Contract
	embedder encoder.Embedder
	builder  *anchorbuilder.Builder
	store    *store.Store
	logger   *slog.Logger

	enforceDeadline time.Duration
	installDeadline time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnforceDeadline overrides the default 50ms enforcement deadline.
func WithEnforceDeadline(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.enforceDeadline = d
		}
	}
}

// WithInstallDeadline overrides the default 10s installation deadline.
func WithInstallDeadline(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.installDeadline = d
		}
	}
}

// New creates an Engine around its collaborators.
func New(contract *vocab.Contract, emb encoder.Embedder, builder *anchorbuilder.Builder, st *store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		contract:        contract,
		embedder:        emb,
		builder:         builder,
		store:           st,
		logger:          logger,
		enforceDeadline: DefaultEnforceDeadline,
		installDeadline: DefaultInstallDeadline,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying Rule Store for stats and replay wiring.
func (e *Engine) Store() *store.Store { return e.store }

// Enforce executes one enforcement call. It returns a Result
// for every policy outcome, including fail-closed BLOCKs; a non-nil error
// means the request itself failed (malformed intent, encoder failure) and
// no decision was emitted.
func (e *Engine) Enforce(ctx context.Context, in *intent.Intent) (*enforcement.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.enforceDeadline)
	defer cancel()

	// Received -> Encoded. Malformed intents and vocabulary violations are
	// request errors, not decisions.
	if err := intent.Validate(in, e.contract); err != nil {
		return nil, err
	}

	iv, err := encoder.EncodeIntent(ctx, e.embedder, e.contract, in)
	if err != nil {
		if ctx.Err() != nil {
			// The embedder ran past the enforcement deadline: BLOCK with
			// reason, not ALLOW and not a bare transport error.
			return &enforcement.Result{
				Decision: enforcement.Block,
				Evidence: []enforcement.Evidence{},
				Reason:   enforcement.ReasonDeadlineExceeded,
			}, nil
		}
		return nil, err
	}

	// Encoded -> Lookup. The snapshot is stable for the rest of the call
	// even if writers mutate the store concurrently.
	handles := e.store.GetRules(in.TenantID, in.AgentID, in.Layer)
	if len(handles) == 0 {
		return &enforcement.Result{
			Decision: enforcement.Block,
			Evidence: []enforcement.Evidence{},
			Reason:   enforcement.ReasonNoRulesConfigured,
		}, nil
	}

	// (Compare -> Evidence)+ with first-BLOCK short-circuit.
	evidence := make([]enforcement.Evidence, 0, len(handles))
	for i := range handles {
		h := &handles[i]

		if ctx.Err() != nil {
			// Deadline expired between comparisons: stop without comparing
			// further rules.
			return &enforcement.Result{
				Decision:       enforcement.Block,
				Evidence:       evidence,
				RulesEvaluated: len(evidence),
				Reason:         enforcement.ReasonDeadlineExceeded,
			}, nil
		}

		cmp, cmpErr := e.compareOne(&iv, h)
		evidence = append(evidence, enforcement.Evidence{
			RuleID:       h.RuleID,
			Priority:     h.Priority,
			Sims:         cmp.Sims,
			RuleDecision: cmp.Decision,
		})
		if cmpErr != nil {
			e.logger.Error("rule comparison failed, treating as block",
				"rule_id", h.RuleID, "tenant_id", in.TenantID, "error", cmpErr)
		}
		if cmp.Decision == enforcement.Block {
			return &enforcement.Result{
				Decision:       enforcement.Block,
				Evidence:       evidence,
				RulesEvaluated: len(evidence),
			}, nil
		}
	}

	// Every rule permitted the intent; rules compose by conjunction.
	return &enforcement.Result{
		Decision:       enforcement.Allow,
		Evidence:       evidence,
		RulesEvaluated: len(evidence),
	}, nil
}

// compareOne fetches a rule's anchors and invokes the kernel. Missing
// anchors and kernel precondition violations are internal invariant
// violations treated as BLOCK on that rule.
func (e *Engine) compareOne(iv *vector.Intent128, h *rule.Handle) (kernel.Comparison, error) {
	anchors, err := e.store.GetAnchors(h.RuleID)
	if err != nil {
		return kernel.Comparison{Decision: enforcement.Block},
			guarderr.Wrap(guarderr.KindInternalInconsistency, "anchors missing for listed rule "+h.RuleID, err)
	}
	cmp, err := kernel.Compare(iv, anchors, h)
	if err != nil {
		return kernel.Comparison{Decision: enforcement.Block}, err
	}
	return cmp, nil
}

// InstallRules installs a batch of rules. Each rule is validated, run
// through the Anchor Builder and Encoder, and only then inserted into the
// store; per-rule failures leave the store untouched for that rule and
// are reported individually.
func (e *Engine) InstallRules(ctx context.Context, rules []*rule.Rule) (*InstallResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.installDeadline)
	defer cancel()

	res := &InstallResult{}
	for _, r := range rules {
		if err := e.installOne(ctx, r); err != nil {
			res.Failures = append(res.Failures, InstallFailure{RuleID: r.RuleID, Reason: err.Error()})
			continue
		}
		res.Installed++
	}
	return res, nil
}

// InstallPrepared installs rules whose anchors were already encoded, e.g.
// replayed from the persistent metadata collaborator.
func (e *Engine) InstallPrepared(r *rule.Rule, anchors *rule.Anchors) error {
	if err := rule.Validate(r, e.contract); err != nil {
		return err
	}
	return e.store.Install(r, anchors)
}

func (e *Engine) installOne(ctx context.Context, r *rule.Rule) error {
	if err := rule.Validate(r, e.contract); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return guarderr.Wrap(guarderr.KindDeadlineExceeded, "installation deadline expired", ctx.Err())
	}

	texts, err := e.builder.BuildRuleAnchors(ctx, r)
	if err != nil {
		return err
	}
	anchors, err := anchorbuilder.EncodeAnchors(ctx, e.embedder, e.contract, texts)
	if err != nil {
		return err
	}
	// All network I/O is done; the store lock is only now taken.
	return e.store.Install(r, anchors)
}

// RemoveAgentRules removes every rule for (tenantID, agentID), returning
// the count removed.
func (e *Engine) RemoveAgentRules(tenantID, agentID string) int {
	return e.store.RemoveAgentRules(tenantID, agentID)
}

// RuleStats reports the store's current contents.
func (e *Engine) RuleStats() store.Stats {
	return e.store.Stats()
}

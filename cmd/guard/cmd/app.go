package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fencio-dev/guard-sub000/internal/adapter/outbound/anchorllm"
	"github.com/fencio-dev/guard-sub000/internal/adapter/outbound/embedder"
	"github.com/fencio-dev/guard-sub000/internal/adapter/outbound/memory"
	"github.com/fencio-dev/guard-sub000/internal/adapter/outbound/sqlite"
	"github.com/fencio-dev/guard-sub000/internal/anchorbuilder"
	"github.com/fencio-dev/guard-sub000/internal/config"
	"github.com/fencio-dev/guard-sub000/internal/domain/ratelimit"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/encoder"
	"github.com/fencio-dev/guard-sub000/internal/engine"
	"github.com/fencio-dev/guard-sub000/internal/service"
	"github.com/fencio-dev/guard-sub000/internal/store"
)

// app holds the wired engine, services, and everything needing cleanup.
// The single top-level owner of the vocabulary contract, projection
// matrices, collaborator clients, and Rule Store.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	enforce *service.EnforcementService
	install *service.InstallService
	replay  *sqlite.ReplayStore
	tracing *sdktrace.TracerProvider
}

// buildLogger constructs the process logger from config.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Server.JSONLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildApp wires the full service graph from config. Callers must invoke
// close() when done.
func buildApp(cfg *config.Config) (*app, error) {
	logger := buildLogger(cfg)

	contract, err := vocab.Load()
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary contract: %w", err)
	}

	var base encoder.Embedder
	switch cfg.Embedder.Mode {
	case config.EmbedderModeHTTP:
		base = embedder.NewHTTPEmbedder(cfg.Embedder.Endpoint, cfg.Embedder.Model)
	default:
		base = memory.NewDeterministicEmbedder()
	}
	emb := encoder.NewCachedEmbedder(base, cfg.Embedder.CacheSize)

	var llm anchorbuilder.LLMProvider
	switch cfg.AnchorLLM.Mode {
	case config.AnchorModeHTTP:
		llm = anchorllm.NewHTTPProvider(cfg.AnchorLLM.Endpoint, cfg.AnchorLLM.Model)
	default:
		llm = memory.NewStubAnchorLLM()
	}
	builder, err := anchorbuilder.New(llm,
		anchorbuilder.WithCacheCapacity(cfg.AnchorLLM.CacheSize),
		anchorbuilder.WithVersionTag(cfg.AnchorLLM.VersionTag),
	)
	if err != nil {
		return nil, fmt.Errorf("building anchor builder: %w", err)
	}

	eng := engine.New(contract, emb, builder, store.New(), logger,
		engine.WithEnforceDeadline(cfg.EnforceDeadline()),
		engine.WithInstallDeadline(cfg.InstallDeadline()),
	)

	a := &app{cfg: cfg, logger: logger, engine: eng}

	tracer := a.buildTracer()

	var identity service.TenantIdentity = service.PayloadTenantIdentity{}
	if cfg.Tenant != "" {
		identity = service.StaticTenantIdentity(cfg.Tenant)
	}
	a.enforce = service.NewEnforcementService(eng, identity, logger, tracer)

	var limiter ratelimit.InstallLimiter
	if cfg.Installation.RateLimit.Enabled {
		limiter = memory.NewInstallLimiter(ratelimit.Budget{
			Rules:  cfg.Installation.RateLimit.Rate,
			Burst:  cfg.Installation.RateLimit.Burst,
			Window: cfg.RateLimitPeriod(),
		})
	}
	a.install = service.NewInstallService(eng, limiter, logger, tracer)

	if cfg.Persistence.Enabled {
		replay, err := sqlite.Open(cfg.Persistence.Path)
		if err != nil {
			a.close()
			return nil, err
		}
		a.replay = replay
		n, err := replay.Replay(context.Background(), func(r *rule.Rule, anchors *rule.Anchors) error {
			return eng.InstallPrepared(r, anchors)
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("replaying persisted rules: %w", err)
		}
		if n > 0 {
			logger.Info("rehydrated rule store", "rules", n, "path", cfg.Persistence.Path)
		}
	}
	return a, nil
}

// buildTracer returns a stdout-exporting tracer in dev mode, a noop one
// otherwise.
func (a *app) buildTracer() trace.Tracer {
	if !a.cfg.DevMode {
		return noop.NewTracerProvider().Tracer("guard")
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		a.logger.Warn("stdout trace exporter unavailable", "error", err)
		return noop.NewTracerProvider().Tracer("guard")
	}
	a.tracing = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	return a.tracing.Tracer("guard")
}

// persistInstalled mirrors a successful installation into the replay store.
func (a *app) persistInstalled(ctx context.Context, rules []*rule.Rule, res *engine.InstallResult) {
	if a.replay == nil || res.Installed == 0 {
		return
	}
	failed := make(map[string]bool, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.RuleID] = true
	}
	for _, r := range rules {
		if failed[r.RuleID] {
			continue
		}
		anchors, err := a.engine.Store().GetAnchors(r.RuleID)
		if err != nil {
			a.logger.Error("installed rule missing anchors during persistence", "rule_id", r.RuleID, "error", err)
			continue
		}
		if err := a.replay.SaveRule(ctx, r, anchors); err != nil {
			a.logger.Error("persisting rule failed", "rule_id", r.RuleID, "error", err)
		}
	}
}

// groupByTenant splits a rule bundle into per-tenant batches, preserving
// bundle order within each batch.
func groupByTenant(rules []*rule.Rule) map[string][]*rule.Rule {
	out := make(map[string][]*rule.Rule)
	for _, r := range rules {
		out[r.TenantID] = append(out[r.TenantID], r)
	}
	return out
}

func (a *app) close() {
	if a.replay != nil {
		if err := a.replay.Close(); err != nil {
			a.logger.Warn("closing replay store", "error", err)
		}
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("shutting down tracer", "error", err)
		}
	}
}

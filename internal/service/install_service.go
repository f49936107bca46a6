package service

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fencio-dev/guard-sub000/internal/domain/ratelimit"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/engine"
	"github.com/fencio-dev/guard-sub000/internal/store"
)

// InstallService handles rule installation and removal. Installation is
// metered per tenant because every rule fans out to the LLM Anchor
// Provider; the limiter sits ahead of the documented install path and can
// be disabled by passing a nil limiter.
type InstallService struct {
	engine  *engine.Engine
	limiter ratelimit.InstallLimiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewInstallService creates an InstallService. A nil limiter disables
// installation rate limiting.
func NewInstallService(eng *engine.Engine, limiter ratelimit.InstallLimiter, logger *slog.Logger, tracer trace.Tracer) *InstallService {
	return &InstallService{engine: eng, limiter: limiter, logger: logger, tracer: tracer}
}

// InstallRules installs a batch of rules for one tenant. Every rule in the
// batch must carry the same tenant id as the authoritative one; mismatched
// rules fail individually rather than failing the batch.
func (s *InstallService) InstallRules(ctx context.Context, tenantID string, rules []*rule.Rule) (*engine.InstallResult, error) {
	ctx, span := s.tracer.Start(ctx, "guard.InstallRules",
		trace.WithAttributes(
			attribute.String("guard.tenant_id", tenantID),
			attribute.Int("guard.rule_count", len(rules)),
		))
	defer span.End()

	if s.limiter != nil {
		dec, err := s.limiter.Reserve(ctx, tenantID, len(rules))
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !dec.Allowed {
			reason := "tenant installation rate limit exceeded"
			if dec.RetryAfter > 0 {
				reason = fmt.Sprintf("%s, retry in %s", reason, dec.RetryAfter.Round(time.Millisecond))
			} else {
				reason = fmt.Sprintf("%s, batch of %d exceeds the burst allowance", reason, len(rules))
			}
			s.logger.Warn("installation rate limited",
				"tenant_id", tenantID, "rules", len(rules), "retry_after", dec.RetryAfter)
			out := &engine.InstallResult{}
			for _, r := range rules {
				out.Failures = append(out.Failures, engine.InstallFailure{
					RuleID: r.RuleID,
					Reason: reason,
				})
			}
			return out, nil
		}
	}

	accepted := make([]*rule.Rule, 0, len(rules))
	out := &engine.InstallResult{}
	for _, r := range rules {
		if r.TenantID != tenantID {
			out.Failures = append(out.Failures, engine.InstallFailure{
				RuleID: r.RuleID,
				Reason: "rule tenant_id does not match authenticated tenant",
			})
			continue
		}
		accepted = append(accepted, r)
	}

	start := time.Now()
	res, err := s.engine.InstallRules(ctx, accepted)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out.Installed = res.Installed
	out.Failures = append(out.Failures, res.Failures...)

	span.SetAttributes(
		attribute.Int("guard.installed", out.Installed),
		attribute.Int("guard.failed", len(out.Failures)),
	)
	s.logger.Info("rules installed",
		"tenant_id", tenantID,
		"installed", out.Installed,
		"failed", len(out.Failures),
		"latency_ms", time.Since(start).Milliseconds())
	return out, nil
}

// RemoveAgentRules removes every rule for (tenantID, agentID).
func (s *InstallService) RemoveAgentRules(ctx context.Context, tenantID, agentID string) int {
	_, span := s.tracer.Start(ctx, "guard.RemoveAgentRules",
		trace.WithAttributes(
			attribute.String("guard.tenant_id", tenantID),
			attribute.String("guard.agent_id", agentID),
		))
	defer span.End()

	removed := s.engine.RemoveAgentRules(tenantID, agentID)
	span.SetAttributes(attribute.Int("guard.removed", removed))
	s.logger.Info("agent rules removed",
		"tenant_id", tenantID, "agent_id", agentID, "removed", removed)
	return removed
}

// RuleStats reports the store's current contents.
func (s *InstallService) RuleStats() store.Stats {
	return s.engine.RuleStats()
}

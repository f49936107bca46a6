// Package service contains application services wrapping the engine with
// request identity, structured logging, and tracing. Services are the
// in-process form of the exposed operations; transport adapters
// call into them.
package service

import (
	"context"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fencio-dev/guard-sub000/internal/domain/enforcement"
	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
	"github.com/fencio-dev/guard-sub000/internal/engine"
)

// EnforceResponse is the service-level enforcement payload: the engine's
// result plus request bookkeeping.
type EnforceResponse struct {
	enforcement.Result
	RequestID string `json:"request_id"`
	LatencyMs int64  `json:"latency_ms"`
}

// EnforcementService executes enforcement requests: it resolves the
// authoritative tenant identity, runs the engine, and logs every decision.
type EnforcementService struct {
	engine   *engine.Engine
	identity TenantIdentity
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewEnforcementService creates an EnforcementService.
func NewEnforcementService(eng *engine.Engine, identity TenantIdentity, logger *slog.Logger, tracer trace.Tracer) *EnforcementService {
	return &EnforcementService{engine: eng, identity: identity, logger: logger, tracer: tracer}
}

// Enforce processes one enforcement request. When the identity provider
// resolves a tenant id, it replaces the intent payload's tenant id; when
// the provider returns none, the payload's tenant id is used.
func (s *EnforcementService) Enforce(ctx context.Context, in *intent.Intent) (*EnforceResponse, error) {
	requestID := in.ID
	if requestID == "" {
		requestID = uuid.New().String()
		in.ID = requestID
	}
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "guard.Enforce",
		trace.WithAttributes(
			attribute.String("guard.request_id", requestID),
			attribute.String("guard.agent_id", in.AgentID),
			attribute.String("guard.layer", string(in.Layer)),
		))
	defer span.End()

	if tenantID, ok := s.identity.TenantID(ctx); ok {
		in.TenantID = tenantID
	}

	result, err := s.engine.Enforce(ctx, in)
	latency := time.Since(start)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("enforcement request failed",
			"request_id", requestID,
			"tenant_id", in.TenantID,
			"agent_id", in.AgentID,
			"layer", in.Layer,
			"latency_ms", latency.Milliseconds(),
			"error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("guard.decision", int(result.Decision)),
		attribute.Int("guard.rules_evaluated", result.RulesEvaluated),
	)
	for _, ev := range result.Evidence {
		span.AddEvent("rule_compared", trace.WithAttributes(
			attribute.String("rule_id", ev.RuleID),
			attribute.Int("rule_decision", int(ev.RuleDecision)),
			attribute.Float64("sim_action", float64(ev.Sims[0])),
			attribute.Float64("sim_resource", float64(ev.Sims[1])),
			attribute.Float64("sim_data", float64(ev.Sims[2])),
			attribute.Float64("sim_risk", float64(ev.Sims[3])),
		))
	}

	s.logger.Info("enforcement decision",
		"request_id", requestID,
		"tenant_id", in.TenantID,
		"agent_id", in.AgentID,
		"layer", in.Layer,
		"decision", result.Decision.String(),
		"reason", result.Reason,
		"rules_evaluated", result.RulesEvaluated,
		"latency_ms", latency.Milliseconds())

	return &EnforceResponse{
		Result:    *result,
		RequestID: requestID,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

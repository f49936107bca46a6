package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/internal/service"
)

// maxRequestBodySize bounds request bodies to prevent memory exhaustion
// from oversized intents or rule batches.
const maxRequestBodySize = 4 * 1024 * 1024 // 4MB

// Server is the inbound HTTP adapter exposing the engine's operations.
type Server struct {
	enforce *service.EnforcementService
	install *service.InstallService
	metrics *Metrics
	logger  *slog.Logger
	server  *http.Server
	addr    string
	version string
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithAddr sets the listen address. Default is "127.0.0.1:8787"
// (localhost only).
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithVersion sets the version string reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates the HTTP surface around the application services,
// registering process and Go collectors plus the guard metrics on a fresh
// registry.
func NewServer(enforce *service.EnforcementService, install *service.InstallService, logger *slog.Logger, opts ...Option) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		enforce: enforce,
		install: install,
		metrics: NewMetrics(reg),
		logger:  logger,
		addr:    "127.0.0.1:8787",
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/enforce", s.handleEnforce)
	mux.HandleFunc("/v1/rules", s.handleRules)
	mux.HandleFunc("/v1/stats", s.handleStats)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           withRequestContext(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
	})
}

func (s *Server) handleEnforce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in intent.Intent
	if err := decodeBody(w, r, &in); err != nil {
		s.metrics.EnforceDecisions.WithLabelValues("error").Inc()
		loggerFrom(r.Context(), s.logger).Warn("rejecting undecodable intent", "error", err)
		writeError(w, guarderr.Wrap(guarderr.KindMalformedIntent, "decoding intent", err))
		return
	}

	start := time.Now()
	res, err := s.enforce.Enforce(r.Context(), &in)
	s.metrics.EnforceDuration.WithLabelValues(string(in.Layer)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.EnforceDecisions.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}
	s.metrics.EnforceDecisions.WithLabelValues(res.Decision.String()).Inc()
	s.metrics.RulesEvaluated.Observe(float64(res.RulesEvaluated))
	writeJSON(w, http.StatusOK, res)
}

// installRequest mirrors the install_rules operation.
type installRequest struct {
	TenantID string       `json:"tenant_id"`
	Rules    []*rule.Rule `json:"rules"`
}

type removeRequest struct {
	TenantID string `json:"tenant_id"`
	AgentID  string `json:"agent_id"`
}

type removeResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req installRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, guarderr.Wrap(guarderr.KindMalformedIntent, "decoding install request", err))
			return
		}
		res, err := s.install.InstallRules(r.Context(), req.TenantID, req.Rules)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, f := range res.Failures {
			s.metrics.InstallFailures.WithLabelValues(failureReasonLabel(f.Reason)).Inc()
		}
		s.metrics.InstalledRules.Set(float64(s.install.RuleStats().TotalRules))
		writeJSON(w, http.StatusOK, res)
	case http.MethodDelete:
		var req removeRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, guarderr.Wrap(guarderr.KindMalformedIntent, "decoding remove request", err))
			return
		}
		removed := s.install.RemoveAgentRules(r.Context(), req.TenantID, req.AgentID)
		s.metrics.InstalledRules.Set(float64(s.install.RuleStats().TotalRules))
		writeJSON(w, http.StatusOK, removeResponse{Removed: removed})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.install.RuleStats())
}

// failureReasonLabel folds free-text failure reasons into a bounded label
// set so the metric's cardinality stays fixed.
func failureReasonLabel(reason string) string {
	switch {
	case strings.Contains(reason, string(guarderr.KindDuplicateRuleId)):
		return "duplicate"
	case strings.Contains(reason, string(guarderr.KindAnchorGenerationFailure)):
		return "anchor_generation"
	case strings.Contains(reason, string(guarderr.KindEmbedderFailure)):
		return "embedder"
	case strings.Contains(reason, "rate limit"):
		return "rate_limited"
	default:
		return "validation"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the closed error taxonomy to HTTP statuses without
// string matching.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind, ok := guarderr.KindOf(err)
	if ok {
		switch kind {
		case guarderr.KindMalformedIntent, guarderr.KindVocabularyViolation:
			status = http.StatusBadRequest
		case guarderr.KindDuplicateRuleId:
			status = http.StatusConflict
		case guarderr.KindRuleNotFound:
			status = http.StatusNotFound
		case guarderr.KindEmbedderFailure, guarderr.KindAnchorGenerationFailure:
			status = http.StatusBadGateway
		case guarderr.KindDeadlineExceeded:
			status = http.StatusGatewayTimeout
		}
	}
	writeJSON(w, status, map[string]string{
		"error":  string(kind),
		"detail": err.Error(),
	})
}

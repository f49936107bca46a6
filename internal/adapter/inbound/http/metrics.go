// Package http provides the thin HTTP surface for the enforcement engine:
// decision and installation endpoints, health, and Prometheus metrics.
// Transport framing beyond this is an external collaborator's concern;
// this adapter exists so deployments have something to point a
// scraper and a probe at.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine's HTTP surface.
// Pass to components that need to record metrics.
type Metrics struct {
	EnforceDecisions *prometheus.CounterVec
	EnforceDuration  *prometheus.HistogramVec
	RulesEvaluated   prometheus.Histogram
	InstallFailures  *prometheus.CounterVec
	InstalledRules   prometheus.Gauge
	RateLimitKeys    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EnforceDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guard",
				Name:      "enforce_decisions_total",
				Help:      "Total enforcement decisions",
			},
			[]string{"decision"}, // decision=allow/block/error
		),
		EnforceDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "guard",
				Name:      "enforce_duration_seconds",
				Help:      "Enforcement call duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"layer"},
		),
		RulesEvaluated: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "guard",
				Name:      "rules_evaluated",
				Help:      "Rules evaluated per enforcement call",
				Buckets:   prometheus.LinearBuckets(0, 4, 16),
			},
		),
		InstallFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guard",
				Name:      "install_failures_total",
				Help:      "Total rule installation failures",
			},
			[]string{"reason"}, // reason=duplicate/anchor_generation/embedder/rate_limited/validation
		),
		InstalledRules: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "guard",
				Name:      "installed_rules",
				Help:      "Number of currently installed rules",
			},
		),
		RateLimitKeys: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "guard",
				Name:      "rate_limit_keys",
				Help:      "Number of active installation rate limit keys",
			},
		),
	}
}

// Package config provides configuration types for the guard enforcement
// engine: the serving surface, the Embedder and Anchor LLM collaborators,
// enforcement/installation deadlines, cache sizes, the installation rate
// limit, and optional rule persistence. Configuration is file-based
// (guard.yaml) with environment overrides.
package config

import (
	"time"
)

// Embedder and anchor provider modes. "inprocess" and "stub" select the
// deterministic in-memory adapters; "http" selects the remote adapters.
const (
	EmbedderModeInprocess = "inprocess"
	EmbedderModeHTTP      = "http"

	AnchorModeStub = "stub"
	AnchorModeHTTP = "http"
)

// Config is the top-level configuration for the guard engine.
type Config struct {
	// Server configures the HTTP listener for the decision/metrics surface.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Embedder configures the base-embedding collaborator.
	Embedder EmbedderConfig `yaml:"embedder" mapstructure:"embedder"`

	// AnchorLLM configures the LLM Anchor Provider used at installation.
	AnchorLLM AnchorLLMConfig `yaml:"anchor_llm" mapstructure:"anchor_llm"`

	// Enforcement configures the hot-path call budget.
	Enforcement EnforcementConfig `yaml:"enforcement" mapstructure:"enforcement"`

	// Installation configures the install-path budget and rate limit.
	Installation InstallationConfig `yaml:"installation" mapstructure:"installation"`

	// Persistence configures the optional rule replay store.
	Persistence PersistenceConfig `yaml:"persistence" mapstructure:"persistence"`

	// Tenant pins a single authoritative tenant id for deployments without
	// an external identity provider. Empty means the caller's context (or
	// payload, for trusted in-process callers) supplies it.
	Tenant string `yaml:"tenant" mapstructure:"tenant"`

	// DevMode enables development features (verbose logging, stdout trace
	// exporter).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8787").
	// Defaults to "127.0.0.1:8787" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// JSONLogs switches the console handler to JSON output.
	JSONLogs bool `yaml:"json_logs" mapstructure:"json_logs"`
}

// EmbedderConfig configures the Embedder collaborator. Exactly one mode
// must be selected; "http" requires an endpoint.
type EmbedderConfig struct {
	// Mode selects the adapter: "inprocess" (deterministic, offline) or
	// "http" (remote embedding service).
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=inprocess http"`

	// Endpoint is the embedding service URL. Required in http mode.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`

	// Model pins the embedding model version. The determinism contract
	// only holds for a pinned version.
	Model string `yaml:"model" mapstructure:"model"`

	// CacheSize bounds the embedder LRU cache (entries). Defaults to 4096.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size" validate:"omitempty,min=0"`
}

// AnchorLLMConfig configures the LLM Anchor Provider.
type AnchorLLMConfig struct {
	// Mode selects the adapter: "stub" (templated, offline) or "http".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=stub http"`

	// Endpoint is the LLM service URL. Required in http mode.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`

	// Model names the LLM used for anchor generation.
	Model string `yaml:"model" mapstructure:"model"`

	// CacheSize bounds the anchor LRU cache (entries). Defaults to 1024.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size" validate:"omitempty,min=0"`

	// VersionTag is folded into the anchor cache key; bumping it forces
	// regeneration of previously cached rules.
	VersionTag string `yaml:"version_tag" mapstructure:"version_tag"`
}

// EnforcementConfig configures the enforcement call budget.
type EnforcementConfig struct {
	// DeadlineMs bounds one enforcement call end-to-end. Expiry is a
	// BLOCK with reason deadline_exceeded, never an ALLOW.
	// Defaults to 50.
	DeadlineMs int `yaml:"deadline_ms" mapstructure:"deadline_ms" validate:"omitempty,min=1"`
}

// InstallationConfig configures the installation path.
type InstallationConfig struct {
	// DeadlineMs bounds one installation batch, accommodating the LLM
	// round-trip. Defaults to 10000.
	DeadlineMs int `yaml:"deadline_ms" mapstructure:"deadline_ms" validate:"omitempty,min=1"`

	// RateLimit bounds installations per tenant.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-tenant installation rate limit.
// The unit is one rule, since each rule installed costs one LLM call.
type RateLimitConfig struct {
	// Enabled turns the installation rate limit on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Rate is the number of rule installations replenished per period
	// per tenant. Defaults to 60 if rate limiting is enabled.
	Rate int `yaml:"rate" mapstructure:"rate" validate:"omitempty,min=1"`

	// Burst is the number of rules a tenant may install at once; larger
	// batches are rejected outright. Defaults to Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"omitempty,min=1"`

	// Period is the rate window (e.g., "1m"). Defaults to "1m".
	Period string `yaml:"period" mapstructure:"period" validate:"omitempty"`
}

// PersistenceConfig configures the optional SQLite replay store that
// rehydrates the in-memory Rule Store on process start.
type PersistenceConfig struct {
	// Enabled turns rule persistence on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file. Defaults to "guard-rules.db".
	Path string `yaml:"path" mapstructure:"path"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8787"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Embedder.Mode == "" {
		c.Embedder.Mode = EmbedderModeInprocess
	}
	if c.Embedder.CacheSize == 0 {
		c.Embedder.CacheSize = 4096
	}
	if c.AnchorLLM.Mode == "" {
		c.AnchorLLM.Mode = AnchorModeStub
	}
	if c.AnchorLLM.CacheSize == 0 {
		c.AnchorLLM.CacheSize = 1024
	}
	if c.AnchorLLM.VersionTag == "" {
		c.AnchorLLM.VersionTag = "v1"
	}
	if c.Enforcement.DeadlineMs == 0 {
		c.Enforcement.DeadlineMs = 50
	}
	if c.Installation.DeadlineMs == 0 {
		c.Installation.DeadlineMs = 10000
	}
	if c.Installation.RateLimit.Enabled {
		if c.Installation.RateLimit.Rate == 0 {
			c.Installation.RateLimit.Rate = 60
		}
		if c.Installation.RateLimit.Burst == 0 {
			c.Installation.RateLimit.Burst = c.Installation.RateLimit.Rate
		}
		if c.Installation.RateLimit.Period == "" {
			c.Installation.RateLimit.Period = "1m"
		}
	}
	if c.Persistence.Enabled && c.Persistence.Path == "" {
		c.Persistence.Path = "guard-rules.db"
	}
}

// SetDevDefaults applies permissive development defaults. Call after CLI
// flag overrides and before Validate.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
}

// EnforceDeadline returns the enforcement deadline as a duration.
func (c *Config) EnforceDeadline() time.Duration {
	return time.Duration(c.Enforcement.DeadlineMs) * time.Millisecond
}

// InstallDeadline returns the installation deadline as a duration.
func (c *Config) InstallDeadline() time.Duration {
	return time.Duration(c.Installation.DeadlineMs) * time.Millisecond
}

// RateLimitPeriod parses the configured rate window, falling back to one
// minute on a missing value. Validate rejects unparseable values first.
func (c *Config) RateLimitPeriod() time.Duration {
	d, err := time.ParseDuration(c.Installation.RateLimit.Period)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	require.Equal(t, "127.0.0.1:8787", cfg.Server.HTTPAddr)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, EmbedderModeInprocess, cfg.Embedder.Mode)
	require.Equal(t, 4096, cfg.Embedder.CacheSize)
	require.Equal(t, AnchorModeStub, cfg.AnchorLLM.Mode)
	require.Equal(t, 1024, cfg.AnchorLLM.CacheSize)
	require.Equal(t, "v1", cfg.AnchorLLM.VersionTag)
	require.Equal(t, 50*time.Millisecond, cfg.EnforceDeadline())
	require.Equal(t, 10*time.Second, cfg.InstallDeadline())
}

func TestSetDefaultsRateLimit(t *testing.T) {
	var cfg Config
	cfg.Installation.RateLimit.Enabled = true
	cfg.SetDefaults()

	require.Equal(t, 60, cfg.Installation.RateLimit.Rate)
	require.Equal(t, 60, cfg.Installation.RateLimit.Burst)
	require.Equal(t, time.Minute, cfg.RateLimitPeriod())
}

func TestSetDevDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.DevMode = true
	cfg.SetDevDefaults()
	require.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestValidateDefaultsPass(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Server.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadAddr(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Server.HTTPAddr = "not an address"
	require.Error(t, cfg.Validate())
}

func TestValidateEmbedderModePairing(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Embedder.Mode = EmbedderModeHTTP
	err := cfg.Validate()
	require.Error(t, err, "http mode without endpoint")
	require.Contains(t, err.Error(), "embedder.endpoint")

	cfg.Embedder.Endpoint = "http://localhost:9000/embed"
	require.NoError(t, cfg.Validate())

	cfg.Embedder.Mode = EmbedderModeInprocess
	err = cfg.Validate()
	require.Error(t, err, "inprocess mode with endpoint set")
}

func TestValidateAnchorModePairing(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.AnchorLLM.Mode = AnchorModeHTTP
	require.Error(t, cfg.Validate())

	cfg.AnchorLLM.Endpoint = "http://localhost:9001/generate"
	require.NoError(t, cfg.Validate())
}

func TestValidateRateLimitPeriod(t *testing.T) {
	var cfg Config
	cfg.Installation.RateLimit.Enabled = true
	cfg.SetDefaults()
	cfg.Installation.RateLimit.Period = "often"
	require.Error(t, cfg.Validate())

	cfg.Installation.RateLimit.Period = "30s"
	require.NoError(t, cfg.Validate())
	require.Equal(t, 30*time.Second, cfg.RateLimitPeriod())
}

// Package config provides configuration loading for the guard engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for guard.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("guard")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: GUARD_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("GUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a guard config file with
// an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".guard"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "guard"))
		}
	} else {
		paths = append(paths, "/etc/guard")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for guard.yaml or
// guard.yml.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, name := range []string{"guard.yaml", "guard.yml"} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested config keys for env var support. Viper's
// AutomaticEnv does not see nested keys that never appear in the config
// file, so each overridable key is bound explicitly.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.json_logs")

	_ = viper.BindEnv("embedder.mode")
	_ = viper.BindEnv("embedder.endpoint")
	_ = viper.BindEnv("embedder.model")
	_ = viper.BindEnv("embedder.cache_size")

	_ = viper.BindEnv("anchor_llm.mode")
	_ = viper.BindEnv("anchor_llm.endpoint")
	_ = viper.BindEnv("anchor_llm.model")
	_ = viper.BindEnv("anchor_llm.cache_size")
	_ = viper.BindEnv("anchor_llm.version_tag")

	_ = viper.BindEnv("enforcement.deadline_ms")
	_ = viper.BindEnv("installation.deadline_ms")
	_ = viper.BindEnv("installation.rate_limit.enabled")
	_ = viper.BindEnv("installation.rate_limit.rate")
	_ = viper.BindEnv("installation.rate_limit.burst")
	_ = viper.BindEnv("installation.rate_limit.period")

	_ = viper.BindEnv("persistence.enabled")
	_ = viper.BindEnv("persistence.path")

	_ = viper.BindEnv("tenant")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, applies dev defaults and validates the result. Callers
// that apply CLI flag overrides (e.g. --dev) first use LoadConfigRaw.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but
// does NOT apply dev defaults or validate. Use this when CLI flags may
// override DevMode before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or an empty string in env-vars-only mode.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

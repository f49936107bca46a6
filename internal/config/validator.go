package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config field %s: failed %q rule", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if err := c.validateEmbedderMode(); err != nil {
		return err
	}
	if err := c.validateAnchorMode(); err != nil {
		return err
	}
	return c.validateRateLimit()
}

// validateEmbedderMode enforces the mode/endpoint pairing: http mode needs
// an endpoint, inprocess mode must not carry one (a set-but-ignored
// endpoint is almost always a misconfiguration).
func (c *Config) validateEmbedderMode() error {
	switch c.Embedder.Mode {
	case EmbedderModeHTTP:
		if c.Embedder.Endpoint == "" {
			return errors.New("embedder.endpoint is required when embedder.mode is \"http\"")
		}
	case EmbedderModeInprocess:
		if c.Embedder.Endpoint != "" {
			return errors.New("embedder.endpoint is set but embedder.mode is \"inprocess\"; remove one")
		}
	}
	return nil
}

func (c *Config) validateAnchorMode() error {
	switch c.AnchorLLM.Mode {
	case AnchorModeHTTP:
		if c.AnchorLLM.Endpoint == "" {
			return errors.New("anchor_llm.endpoint is required when anchor_llm.mode is \"http\"")
		}
	case AnchorModeStub:
		if c.AnchorLLM.Endpoint != "" {
			return errors.New("anchor_llm.endpoint is set but anchor_llm.mode is \"stub\"; remove one")
		}
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	rl := c.Installation.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.Period != "" {
		d, err := time.ParseDuration(rl.Period)
		if err != nil {
			return fmt.Errorf("installation.rate_limit.period %q is not a duration: %w", rl.Period, err)
		}
		if d <= 0 {
			return fmt.Errorf("installation.rate_limit.period %q must be positive", rl.Period)
		}
	}
	return nil
}

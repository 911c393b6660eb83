package config

import (
	"fmt"
	"os"
	"time"
)

// EncoderConfig configures the client for the external embedding encoder.
type EncoderConfig struct {
	Provider   string        `mapstructure:"provider"`    // "jina" or "clip-server"
	Model      string        `mapstructure:"model"`       // Model name/ID
	APIKey     string        `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL    string        `mapstructure:"base_url"`    // Endpoint override; required for clip-server
	Dimensions int           `mapstructure:"dimensions"`  // Expected vector dimension, 0 to accept the encoder's
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars loads APIKey from APIKeyEnv when it is not set directly.
func (c *EncoderConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
}

// Validate checks that the encoder configuration has all required fields.
func (c *EncoderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("encoder: model is required")
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("encoder: dimensions must not be negative")
	}

	switch c.Provider {
	case "jina":
	case "clip-server":
		if c.BaseURL == "" {
			return fmt.Errorf("encoder: base_url is required for provider clip-server")
		}
	default:
		return fmt.Errorf("encoder: unknown provider %q", c.Provider)
	}
	return nil
}

// ValidateWithAPIKey additionally requires an API key for hosted providers.
// Use this when the encoder will actually be called.
func (c *EncoderConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Provider == "jina" && c.APIKey == "" {
		return fmt.Errorf("encoder: api_key is required (set directly or via %s)", c.APIKeyEnv)
	}
	return nil
}

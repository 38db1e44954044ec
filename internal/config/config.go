package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	TranslationProvider string `envconfig:"TRANSLATION_PROVIDER" default:"gemini"`
	TranslationModel    string `envconfig:"TRANSLATION_MODEL" default:""`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY" default:""`
	TogetherAPIKey string `envconfig:"TOGETHER_API_KEY" default:""`

	SegmentSize int `envconfig:"SEGMENT_SIZE" default:"0"`

	APITokenHash string `envconfig:"API_TOKEN_HASH" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.TranslationProvider) == "" {
		return fmt.Errorf("TRANSLATION_PROVIDER is required")
	}
	if c.SegmentSize < 0 {
		return fmt.Errorf("SEGMENT_SIZE must be >= 0")
	}
	return nil
}

// APIKeyFor returns the configured credential for a provider name.
func (c *Config) APIKeyFor(provider string) string {
	if c == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return strings.TrimSpace(c.GeminiAPIKey)
	case "together":
		return strings.TrimSpace(c.TogetherAPIKey)
	default:
		return ""
	}
}

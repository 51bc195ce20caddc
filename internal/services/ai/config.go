// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	// Completion provider (OpenRouter-compatible).
	APIKey  string
	BaseURL string

	// Embedding provider; falls back to the completion credentials when empty.
	EmbeddingKey     string
	EmbeddingBaseURL string
	EmbeddingModel   string

	// DefaultModel is used when a friendly model name cannot be resolved.
	DefaultModel string

	StreamTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://openrouter.ai/api/v1",
		EmbeddingModel: "text-embedding-3-small",
		DefaultModel:   "google/gemini-2.5-flash",
		StreamTimeout:  120 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model is required")
	}
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("stream_timeout must be positive")
	}
	return nil
}

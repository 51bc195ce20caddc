// File: internal/services/vector/config.go
package vector

import (
	"errors"
	"time"
)

type Config struct {
	APIKey    string
	IndexHost string
	Namespace string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Namespace:  "chat-exchanges",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("pinecone API key is required")
	}
	if c.IndexHost == "" {
		return errors.New("pinecone index host is required")
	}
	if c.Namespace == "" {
		return errors.New("pinecone namespace is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	return nil
}

// File: internal/services/memory/config.go
package memory

import (
	"errors"
	"time"
)

type Config struct {
	APIURL string
	APIKey string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Second,
	}
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("memory API URL is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	return nil
}

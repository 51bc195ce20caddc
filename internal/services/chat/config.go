// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

type Config struct {
	// PromptWindowSize bounds how many recent messages feed the upstream prompt.
	PromptWindowSize int

	// Streaming persistence throttle. A partial write happens when either gate
	// opens: enough time since the last write, or enough new characters.
	FlushInterval time.Duration
	FlushChars    int

	// Stream publisher cadence and ceiling.
	PollInterval  time.Duration
	MaxStreamWait time.Duration

	// Title generation.
	TitleMaxLength int

	// Dispatcher bounds.
	MaxConcurrent int64

	// Per-user generation budget.
	RateLimitAttempts int
	RateLimitWindow   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		PromptWindowSize:  20,
		FlushInterval:     time.Second,
		FlushChars:        200,
		PollInterval:      100 * time.Millisecond,
		MaxStreamWait:     45 * time.Second,
		TitleMaxLength:    80,
		MaxConcurrent:     32,
		RateLimitAttempts: 50,
		RateLimitWindow:   time.Hour,
	}
}

func (c *Config) Validate() error {
	if c.PromptWindowSize <= 0 {
		return fmt.Errorf("prompt_window_size must be positive")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive")
	}
	if c.FlushChars <= 0 {
		return fmt.Errorf("flush_chars must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.MaxStreamWait <= c.PollInterval {
		return fmt.Errorf("max_stream_wait must exceed poll_interval")
	}
	if c.TitleMaxLength <= 0 {
		return fmt.Errorf("title_max_length must be positive")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	if c.RateLimitAttempts <= 0 {
		return fmt.Errorf("rate_limit_attempts must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive")
	}
	return nil
}

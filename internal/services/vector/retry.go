// File: internal/services/vector/retry.go
package vector

import (
	"context"
	"time"
)

// Logger defines the logging interface used by the vector service.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type retrier struct {
	config *Config
	logger Logger
}

func (r *retrier) do(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Debug("retrying vector operation", "attempt", attempt, "max_retries", r.config.MaxRetries)
			select {
			case <-ctx.Done():
				return NewRetryError("aborted during retry wait", ctx.Err())
			case <-time.After(r.config.RetryDelay):
			}
		}

		err := call(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("vector operation succeeded after retry", "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return NewRetryError("aborted", ctx.Err())
		}
		if attempt < r.config.MaxRetries {
			r.logger.Warn("vector operation failed, retrying", "attempt", attempt+1, "error", err)
		}
	}

	return NewRetryError("operation failed after all retries", lastErr)
}

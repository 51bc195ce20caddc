// File: internal/services/memory/retry.go
package memory

import (
	"context"
	"time"
)

type retrier struct {
	config *Config
	logger Logger
}

func (r *retrier) do(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewRetryError("aborted during retry wait", ctx.Err())
			case <-time.After(r.config.RetryDelay):
			}
		}

		err := call(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("memory call succeeded after retry", "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return NewRetryError("aborted", ctx.Err())
		}
		if attempt < r.config.MaxRetries {
			r.logger.Warn("memory call failed, retrying", "attempt", attempt+1, "error", err)
		}
	}

	return NewRetryError("call failed after all retries", lastErr)
}

package handlers

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/lyzr/flowexec/cmd/flowexec/registry"
)

// WithRetry wraps an action handler's remote call with exponential backoff,
// retrying only registry.ErrRemoteUnavailable, bounded to policy.MaxAttempts,
// per spec.md §5. All other HandlerError kinds (and any non-HandlerError)
// are returned immediately without retry.
func WithRetry(ctx context.Context, policy registry.RetryPolicy, onRetry func(attempt int), call func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.Multiplier = 2
	b.MaxInterval = policy.Cap
	b.MaxElapsedTime = 0 // bounded by MaxAttempts instead of elapsed time

	attempts := 0
	operation := func() error {
		attempts++
		err := call()
		if err == nil {
			return nil
		}

		var hErr *registry.HandlerError
		if errors.As(err, &hErr) && hErr.Kind == registry.ErrRemoteUnavailable {
			if attempts >= policy.MaxAttempts {
				return backoff.Permanent(err)
			}
			if onRetry != nil {
				onRetry(attempts)
			}
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

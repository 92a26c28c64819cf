package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	policy := registry.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Cap: 10 * time.Millisecond}

	attempts := 0
	err := WithRetry(context.Background(), policy, nil, func() error {
		attempts++
		if attempts < 3 {
			return registry.NewHandlerError(registry.ErrRemoteUnavailable, "transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_DoesNotRetryInvalidInput(t *testing.T) {
	policy := registry.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Cap: 10 * time.Millisecond}

	attempts := 0
	err := WithRetry(context.Background(), policy, nil, func() error {
		attempts++
		return registry.NewHandlerError(registry.ErrInvalidInput, "bad")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	policy := registry.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Cap: 10 * time.Millisecond}

	attempts := 0
	err := WithRetry(context.Background(), policy, nil, func() error {
		attempts++
		return registry.NewHandlerError(registry.ErrRemoteUnavailable, "down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/provider"
)

func retryAll(error) bool { return true }

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		return nil
	}, retryAll)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return provider.Transientf("k", "create", "throttled")
		}
		return nil
	}, provider.IsTransient)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	boom := provider.Permanentf("k", "create", "denied")
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		return boom
	}, provider.IsTransient)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	policy := &RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	err := RetryWithBackoff(context.Background(), policy, func() error {
		calls++
		return provider.Transientf("k", "create", "throttled")
	}, provider.IsTransient)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retries")
}

func TestRetryWithBackoff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := &RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Second}
	err := RetryWithBackoff(ctx, policy, func() error {
		return provider.Transientf("k", "create", "throttled")
	}, provider.IsTransient)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := calculateBackoff(attempt, 100*time.Millisecond, time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

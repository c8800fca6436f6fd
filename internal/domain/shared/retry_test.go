package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	t.Run("returns on first success", func(t *testing.T) {
		calls := 0
		err := testPolicy().Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := testPolicy().Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return NewTransientError(errors.New("timeout"))
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		permanent := errors.New("not found")
		calls := 0
		err := testPolicy().Do(context.Background(), func(ctx context.Context) error {
			calls++
			return permanent
		})

		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts the attempt budget", func(t *testing.T) {
		cause := errors.New("still down")
		calls := 0
		err := testPolicy().Do(context.Background(), func(ctx context.Context) error {
			calls++
			return NewTransientError(cause)
		})

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := testPolicy().Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return NewTransientError(errors.New("timeout"))
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicy_DelayForAttempt(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
	}

	assert.Equal(t, 100*time.Millisecond, policy.delayForAttempt(1))
	assert.Equal(t, 200*time.Millisecond, policy.delayForAttempt(2))
	assert.Equal(t, 400*time.Millisecond, policy.delayForAttempt(3))
	assert.Equal(t, 800*time.Millisecond, policy.delayForAttempt(4))
	// Capped at MaxDelay from here on
	assert.Equal(t, time.Second, policy.delayForAttempt(5))
	assert.Equal(t, time.Second, policy.delayForAttempt(10))
}

func TestRetryPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetryPolicy().Validate())

	invalid := RetryPolicy{MaxAttempts: 0, BaseDelay: time.Second, MaxDelay: time.Minute}
	assert.Error(t, invalid.Validate())

	inverted := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Second}
	assert.Error(t, inverted.Validate())
}

func TestIsTransient(t *testing.T) {
	cause := errors.New("timeout")
	assert.False(t, IsTransient(cause))
	assert.True(t, IsTransient(NewTransientError(cause)))

	wrapped := NewTransientError(cause)
	assert.ErrorIs(t, wrapped, cause)
}

package shared

import (
	"context"
	"errors"
	"time"
)

// TransientError marks an error as retryable. Platform adapters wrap network
// failures, HTTP 5xx and rate-limit responses with it so that callers can apply
// a uniform retry policy without inspecting platform-specific error codes.
type TransientError struct {
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error
func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or any wrapped error) is retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryPolicy is the single retry/backoff policy applied around every outbound
// platform call. Only transient errors are retried; validation and not-found
// conditions fail immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Validate validates the policy
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return NewDomainError("VALIDATION_ERROR", "retry policy requires at least one attempt")
	}
	if p.BaseDelay <= 0 || p.MaxDelay < p.BaseDelay {
		return NewDomainError("VALIDATION_ERROR", "retry policy delays are invalid")
	}
	return nil
}

// delayForAttempt returns the backoff delay before retry n (1-indexed).
// Exponential: BaseDelay * 2^(n-1), capped at MaxDelay.
func (p RetryPolicy) delayForAttempt(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<(attempt-1))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs fn, retrying transient failures with exponential backoff until the
// attempt budget is exhausted or the context is cancelled. The last error is
// returned unwrapped of retry bookkeeping.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.delayForAttempt(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Tiny delays so tests finish quickly.
	RetryMinWait = 1 * time.Millisecond
	RetryMaxWait = 2 * time.Millisecond
	RateLimitExtraWait = 1 * time.Millisecond
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrClass
	}{
		{name: "nil", err: nil, want: ClassRetryable},
		{name: "401 status", err: errors.New("API error 401: invalid request"), want: ClassAuth},
		{name: "bad key", err: errors.New("Invalid API key provided"), want: ClassAuth},
		{name: "anthropic key header", err: errors.New("invalid x-api-key"), want: ClassAuth},
		{name: "billing", err: errors.New("Your account has a billing issue"), want: ClassBilling},
		{name: "credit balance", err: errors.New("Your credit balance is too low"), want: ClassBilling},
		{name: "quota with billing details", err: errors.New("You exceeded your current quota, please check your plan and billing details"), want: ClassBilling},
		{name: "429 status", err: errors.New("API error 429: slow down"), want: ClassRateLimit},
		{name: "tokens per minute", err: errors.New("Limit reached for tokens per minute"), want: ClassRateLimit},
		{name: "503 status", err: errors.New("API error 503: service unavailable"), want: ClassServer},
		{name: "overloaded", err: errors.New("Overloaded, try again"), want: ClassServer},
		{name: "unknown", err: errors.New("connection reset by peer"), want: ClassRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCallWithRetryImmediateSuccess(t *testing.T) {
	calls := 0
	out, err := CallWithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestCallWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	out, err := CallWithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("API error 429: too many requests")
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetryExhaustsCeiling(t *testing.T) {
	calls := 0
	lastErr := errors.New("API error 503: service unavailable")
	_, err := CallWithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", lastErr
	})
	// The last error comes back unmodified, not wrapped.
	require.Equal(t, lastErr, err)
	assert.Equal(t, MaxAttempts, calls)
}

func TestCallWithRetryFatalAuth(t *testing.T) {
	calls := 0
	_, err := CallWithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("API error 401: invalid api key")
	})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, ClassAuth, fatal.Class)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
}

func TestCallWithRetryFatalBilling(t *testing.T) {
	calls := 0
	_, err := CallWithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("insufficient funds on account")
	})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, ClassBilling, fatal.Class)
	assert.Equal(t, 1, calls)
}

func TestCallWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := CallWithRetry(ctx, func(context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("transient failure")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffWait(t *testing.T) {
	minWait, maxWait := RetryMinWait, RetryMaxWait
	RetryMinWait = 30 * time.Second
	RetryMaxWait = 60 * time.Second
	t.Cleanup(func() {
		RetryMinWait, RetryMaxWait = minWait, maxWait
	})

	assert.Equal(t, 30*time.Second, backoffWait(0))
	assert.Equal(t, 60*time.Second, backoffWait(1))
	assert.Equal(t, 60*time.Second, backoffWait(2))
	assert.Equal(t, 60*time.Second, backoffWait(3))
	// Saturation holds even when the shift overflows.
	assert.Equal(t, 60*time.Second, backoffWait(62))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxAttempts is the retry ceiling for one extraction call: the initial
// attempt plus four retries.
const MaxAttempts = 5

// Backoff bounds. The wait doubles from the minimum and saturates at the
// maximum; rate-limit failures get a fixed extra wait on top. Exported
// vars so tests can avoid real sleeps.
var (
	RetryMinWait       = 30 * time.Second
	RetryMaxWait       = 60 * time.Second
	RateLimitExtraWait = 5 * time.Second
)

// ErrClass classifies an extraction-call failure for retry purposes.
type ErrClass int

const (
	// ClassRetryable is the conservative default: anything not otherwise
	// classified is retried up to the ceiling.
	ClassRetryable ErrClass = iota

	// ClassRateLimit is a throughput rejection; retryable with extra delay.
	ClassRateLimit

	// ClassServer is a remote 5xx-style fault; retryable.
	ClassServer

	// ClassAuth is an authentication failure; never retried.
	ClassAuth

	// ClassBilling is budget or billing exhaustion; never retried.
	ClassBilling
)

func (c ErrClass) String() string {
	switch c {
	case ClassRateLimit:
		return "rate-limit"
	case ClassServer:
		return "server"
	case ClassAuth:
		return "auth"
	case ClassBilling:
		return "billing"
	default:
		return "retryable"
	}
}

// Fatal reports whether the class must surface immediately: the credential
// has to be replaced, so retrying the same call cannot succeed.
func (c ErrClass) Fatal() bool {
	return c == ClassAuth || c == ClassBilling
}

// Marker tables for error classification. Providers phrase failures
// differently across SDK versions, so classification is case-insensitive
// substring matching on the error text. Order matters: auth and billing
// are checked before rate-limit, since billing rejections often mention
// quotas too.
var (
	authMarkers = []string{
		"401",
		"invalid api key",
		"invalid x-api-key",
		"unauthorized",
		"authentication",
	}

	billingMarkers = []string{
		"billing",
		"insufficient funds",
		"usage limit",
		"account suspended",
		"payment required",
		"credit balance",
	}

	rateLimitMarkers = []string{
		"rate limit",
		"429",
		"too many requests",
		"quota exceeded",
		"tokens per minute",
		"requests per minute",
	}

	serverMarkers = []string{
		"500",
		"502",
		"503",
		"504",
		"internal server error",
		"overloaded",
		"service unavailable",
	}
)

// Classify maps an error to its retry class by matching the marker tables
// against the error text.
func Classify(err error) ErrClass {
	if err == nil {
		return ClassRetryable
	}
	msg := strings.ToLower(err.Error())

	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return ClassAuth
		}
	}
	for _, m := range billingMarkers {
		if strings.Contains(msg, m) {
			return ClassBilling
		}
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return ClassRateLimit
		}
	}
	for _, m := range serverMarkers {
		if strings.Contains(msg, m) {
			return ClassServer
		}
	}
	return ClassRetryable
}

// FatalError wraps an auth or billing failure. The orchestrator re-raises
// it to its caller instead of recording a per-item error, because the run
// cannot proceed on the same credential.
type FatalError struct {
	Class ErrClass
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s error from extraction service: %v", e.Class, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// CallWithRetry invokes fn up to MaxAttempts times with bounded
// exponential backoff between attempts. Fatal classes surface immediately
// as a *FatalError; after the ceiling is exhausted the last error is
// returned unmodified.
func CallWithRetry(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}

		class := Classify(err)
		if class.Fatal() {
			return "", &FatalError{Class: class, Err: err}
		}
		lastErr = err

		if attempt == MaxAttempts-1 {
			break
		}

		wait := backoffWait(attempt)
		if class == ClassRateLimit {
			wait += RateLimitExtraWait
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// backoffWait doubles from the minimum and saturates at the maximum:
// 30s, 60s, 60s, ...
func backoffWait(attempt int) time.Duration {
	wait := RetryMinWait << attempt
	if wait > RetryMaxWait || wait <= 0 {
		wait = RetryMaxWait
	}
	return wait
}

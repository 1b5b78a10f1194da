package tutor

import (
	"math/rand"
	"time"
)

// RetryPolicy configures automatic retry of transient capability failures.
//
// When an invocation fails with a transient error, the engine waits with
// exponential backoff and jitter before the next attempt. Non-transient
// errors are never retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base for exponential backoff:
	// min(BaseDelay * 2^attempt, MaxDelay) + jitter(0, BaseDelay).
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means no cap.
	MaxDelay time.Duration
}

// Validate checks the policy's constraints.
func (rp RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// backoff computes the delay before retry number attempt (zero-based).
// Jitter randomizes timing so concurrent sessions hitting the same failing
// dependency do not retry in lockstep.
func (rp RetryPolicy) backoff(attempt int) time.Duration {
	base := rp.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * (1 << attempt)
	if rp.MaxDelay > 0 && delay > rp.MaxDelay {
		delay = rp.MaxDelay
	}

	// Jitter for retry timing, not security.
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404
	return delay + jitter
}

// FallbackPolicy decides what happens when critique rejections exhaust the
// configured retry budget for a topic. The observed behavior of the
// pipeline left this ambiguous, so it is an explicit configuration rather
// than something inferred from stage output.
type FallbackPolicy string

const (
	// FallbackBestEffort proceeds to generation with the best_effort flag
	// set on the state. This is the default.
	FallbackBestEffort FallbackPolicy = "best_effort"

	// FallbackFail aborts the run; the session is marked failed with its
	// checkpoint preserved.
	FallbackFail FallbackPolicy = "fail"
)

// Options configures Engine execution behavior. Zero values select the
// defaults noted per field.
type Options struct {
	// MaxSteps bounds the number of stage invocations in one run-loop
	// activation, guarding against routing bugs. Default 100.
	MaxSteps int

	// MaxResearchRetries bounds how many times a critique rejection sends
	// a topic back to research. Default 3.
	MaxResearchRetries int

	// Retry governs transient capability failures. Default: 3 attempts,
	// 500ms base delay, 10s cap.
	Retry RetryPolicy

	// Fallback is the critique-exhaustion policy. Default best_effort.
	Fallback FallbackPolicy

	// StreamBuffer is the per-run event channel capacity. Default
	// emit.DefaultStreamBuffer.
	StreamBuffer int
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.MaxSteps == 0 {
		o.MaxSteps = 100
	}
	if o.MaxResearchRetries == 0 {
		o.MaxResearchRetries = 3
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
	}
	if o.Fallback == "" {
		o.Fallback = FallbackBestEffort
	}
	return o
}

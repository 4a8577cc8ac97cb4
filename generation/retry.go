package generation

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy bounds how generation calls are retried
type RetryPolicy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	Retryable   func(error) bool
}

// DefaultRetryPolicy retries rate-limit and server errors three times with
// exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxJitter:   250 * time.Millisecond,
		Retryable:   IsTransient,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. The last error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		// retry-go treats zero as unlimited
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.BaseDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	}
	if p.MaxJitter > 0 {
		opts = append(opts,
			retry.MaxJitter(p.MaxJitter),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		)
	} else {
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
	}

	return retry.Do(func() error { return fn(ctx) }, opts...)
}

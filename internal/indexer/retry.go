package indexer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry runs fn until it succeeds, maxRetries retries are spent or ctx
// ends. Delays start at baseDelay and double each attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, notify func(error, time.Duration), fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = 64 * baseDelay
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)
	return backoff.RetryNotify(func() error { return fn(ctx) }, policy, notify)
}

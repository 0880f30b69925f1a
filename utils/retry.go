package utils

import (
	"context"
	"time"

	"servicehub/store"

	"go.uber.org/zap"
)

// RetryPolicy caps attempts and doubles the delay after every failure.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is used when a caller has no configured policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, BaseDelay: 200 * time.Millisecond}

// Retry runs fn until it succeeds, returns a non-transient error, the
// attempts run out, or ctx is done. Only store.TransientStoreError is retried.
func Retry(ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil || !store.IsTransient(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}
		GetLogger().Warn("retrying after transient store error",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"servicehub/store"

	"github.com/stretchr/testify/assert"
)

var fastPolicy = RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

func transient() error {
	return &store.TransientStoreError{Op: "get", Err: errors.New("unavailable")}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, "test", func(ctx context.Context) error {
		calls++
		return transient()
	})
	assert.True(t, store.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, "test", func(ctx context.Context) error {
		calls++
		return store.ErrNotFound
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 5, BaseDelay: time.Hour}, "test", func(ctx context.Context) error {
		calls++
		cancel()
		return transient()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), RetryPolicy{}, "test", func(ctx context.Context) error {
		calls++
		return transient()
	})
	assert.Equal(t, 1, calls)
}

/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds after temporary errors", func(t *testing.T) {
		attempts := 0
		var notified []time.Duration
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), nil,
			func(err error, d time.Duration) { notified = append(notified, d) },
			func(ctx context.Context) error {
				attempts++
				if attempts < 3 {
					return errTemporary
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, notified)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		attempts := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(ctx context.Context) error {
				attempts++
				return errTemporary
			})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 3, attempts)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		errFatal := errors.New("fatal")
		attempts := 0
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 10),
			func(err error) bool { return !errors.Is(err, errFatal) }, nil,
			func(ctx context.Context) error {
				attempts++
				return errFatal
			})
		require.ErrorIs(t, err, errFatal)
		require.Equal(t, 1, attempts)
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := DoWithRetry(ctx, NewConstantBackoffPolicy(time.Millisecond, 0), nil, nil,
			func(ctx context.Context) error {
				attempts++
				if attempts == 2 {
					cancel()
				}
				return errTemporary
			})
		require.Error(t, err)
		require.Equal(t, 2, attempts)
	})
}

func TestExponentialBackoffPolicy(t *testing.T) {
	bf := ExponentialBackoffPolicy{InitialInterval: 100 * time.Millisecond, Multiplier: 3, MaxAttempts: 2}.NewBackOff()
	first := bf.NextBackOff()
	require.InDelta(t, float64(100*time.Millisecond), float64(first), float64(50*time.Millisecond))
	require.NotEqual(t, backoff.Stop, bf.NextBackOff())
	require.Equal(t, backoff.Stop, bf.NextBackOff())
}

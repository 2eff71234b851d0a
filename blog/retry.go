package blog

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultRetryDelay is the pause before the single retry of a rate-limited call.
const DefaultRetryDelay = 2 * time.Second

// CallWithRetry runs fn and, if it failed with ErrRateLimited, runs it once more after delay.
// Any other error is returned as is.
func CallWithRetry[T any](ctx context.Context, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	out, err := backoff.Retry(ctx, func() (T, error) {
		out, err := fn(ctx)
		if err != nil && !errors.Is(err, ErrRateLimited) {
			return out, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(2),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil && ctx.Err() != nil {
		err = Unavailable(err)
	}
	return out, err
}

// WithTimeout runs fn under a per-call deadline.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = Unavailable(err)
	}
	return out, err
}

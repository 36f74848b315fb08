package api

import (
	"context"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
)

// RetryPolicy retries failed calls with linear backoff: the wait before
// retry i (from 0) is Delay*(i+1).
type RetryPolicy struct {
	MaxRetries int           `yaml:"maxRetries"`
	Delay      time.Duration `yaml:"delay"`
}

// DefaultRetry makes up to four attempts, waiting 1s, 2s and 3s between
// them.
var DefaultRetry = RetryPolicy{MaxRetries: 3, Delay: time.Second}

// Retry calls fn until it succeeds, fails with a 4xx APIError, ctx ends,
// or the policy is exhausted. The last error is returned.
func Retry[T any](ctx context.Context, c clock.Clock, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	c = clock.Or(c)
	var (
		out T
		err error
	)
	for i := 0; i <= p.MaxRetries; i++ {
		out, err = fn(ctx)
		if err == nil || !retryable(ctx, err) || i == p.MaxRetries {
			return out, err
		}
		if werr := clock.Sleep(ctx, c, p.Delay*time.Duration(i+1)); werr != nil {
			return out, err
		}
	}
	return out, err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !IsClientError(err)
}

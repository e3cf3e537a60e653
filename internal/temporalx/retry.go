package temporalx

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Retry calls op until it succeeds, returns a non-retryable error, or the
// policy's wait budget runs out. onRetry is called before each sleep.
func Retry(ctx context.Context, p RetryPolicy, retryable func(error) bool, onRetry func(attempt int, err error), op func(ctx context.Context) error) (int, error) {
	deadline := time.Now().Add(p.MaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		if p.MaxWait <= 0 || time.Now().After(deadline) || (retryable != nil && !retryable(err)) {
			return attempt, err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		timer := time.NewTimer(Backoff(p.Backoff, p.BackoffMax, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

// Backoff doubles base per attempt, capped at max.
func Backoff(base time.Duration, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if max > 0 && sleep >= max {
			return max
		}
	}
	if max > 0 && sleep > max {
		return max
	}
	return sleep
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

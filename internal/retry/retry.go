// Package retry runs fallible operations a bounded number of times with a
// fixed pause between attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do calls op until it succeeds or attempts are exhausted, sleeping backoff
// between failures. The sleep only blocks the calling goroutine and is cut
// short when ctx is done.
func Do[T any](ctx context.Context, attempts int, backoff time.Duration, op func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, fmt.Errorf("retry interrupted after %d attempts: %w", i, ctx.Err())
			}
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

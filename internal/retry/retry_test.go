package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	assert.Equal(t, nil, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, true, errors.Is(err, boom))
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, 5, time.Hour, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("nope")
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, true, errors.Is(err, context.Canceled))
}

func TestDoClampsAttempts(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), 0, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	assert.Equal(t, 1, calls)
}

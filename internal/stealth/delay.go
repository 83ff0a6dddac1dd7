package stealth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayProfile names a jitter window applied before every request.
type DelayProfile string

const (
	ProfileNone       DelayProfile = "none"
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
)

var profileWindows = map[DelayProfile][2]time.Duration{
	ProfileCautious:   {time.Second, 3 * time.Second},
	ProfileNormal:     {100 * time.Millisecond, 500 * time.Millisecond},
	ProfileAggressive: {0, 100 * time.Millisecond},
}

// Jitter spreads concurrent workers out in time by sleeping a random
// duration in [Min, Max) before each request.
type Jitter struct {
	Min, Max time.Duration
}

// NewJitter returns the jitter for profile. "none" and "" yield a nil
// *Jitter, which StealthTransport skips.
func NewJitter(profile DelayProfile) (*Jitter, error) {
	if profile == "" || profile == ProfileNone {
		return nil, nil
	}
	w, ok := profileWindows[profile]
	if !ok {
		return nil, fmt.Errorf("unknown delay profile %q (want none, cautious, normal or aggressive)", profile)
	}
	return &Jitter{Min: w[0], Max: w[1]}, nil
}

// Next draws the next delay.
func (j *Jitter) Next() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + rand.N(j.Max-j.Min)
}

// Wait sleeps for Next() or until ctx is done.
func (j *Jitter) Wait(ctx context.Context) error {
	d := j.Next()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

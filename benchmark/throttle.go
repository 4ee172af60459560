package benchmark

import (
	"context"
	"time"
)

// ExpectedDurationFor returns how long one write of bufferSize bytes should
// take to hold rate bytes per second. It is zero when rate is not positive.
func ExpectedDurationFor(bufferSize int, rate int64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(bufferSize) * int64(time.Second) / rate)
}

// Throttle caps the write rate of a single worker by sleeping out the time
// each chunk finished ahead of its expected duration. It is computed once per
// run and shared read-only by all workers.
type Throttle struct {
	expected time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewThrottle returns a throttle for chunks of bufferSize bytes at rate
// bytes per second. A non-positive rate gives an inert throttle.
func NewThrottle(bufferSize int, rate int64) Throttle {
	return Throttle{
		expected: ExpectedDurationFor(bufferSize, rate),
		sleep:    sleepContext,
	}
}

// Enabled reports whether the throttle ever sleeps.
func (t Throttle) Enabled() bool {
	return t.expected > 0
}

// Expected is the minimum duration of one chunk.
func (t Throttle) Expected() time.Duration {
	return t.expected
}

// Enforce suspends the caller for expected-actual when the operation was
// faster than expected. A cancelled ctx ends the sleep with ctx.Err().
func (t Throttle) Enforce(ctx context.Context, actual time.Duration) error {
	if actual >= t.expected {
		return nil
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, t.expected-actual)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

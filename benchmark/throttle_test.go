package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedDurationFor(t *testing.T) {
	tests := []struct {
		name       string
		bufferSize int
		rate       int64
		want       time.Duration
	}{
		{"unthrottled", 10240, 0, 0},
		{"negative rate", 10240, -5, 0},
		{"one chunk per second", 1024, 1024, time.Second},
		{"ten chunks per second", 1024, 10240, 100 * time.Millisecond},
		{"default buffer at 1 MiB/s", 10240, 1 << 20, time.Duration(10240 * 1e9 / (1 << 20))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedDurationFor(tt.bufferSize, tt.rate))
		})
	}
}

func recordingThrottle(bufferSize int, rate int64, slept *[]time.Duration) Throttle {
	th := NewThrottle(bufferSize, rate)
	th.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return th
}

func TestThrottleEnforce(t *testing.T) {
	t.Run("instantaneous write sleeps the full expected duration", func(t *testing.T) {
		var slept []time.Duration
		th := recordingThrottle(1024, 1024, &slept)
		require.True(t, th.Enabled())

		require.NoError(t, th.Enforce(context.Background(), 0))
		assert.Equal(t, []time.Duration{time.Second}, slept)
	})

	t.Run("sleeps only the shortfall", func(t *testing.T) {
		var slept []time.Duration
		th := recordingThrottle(1024, 1024, &slept)

		require.NoError(t, th.Enforce(context.Background(), 300*time.Millisecond))
		assert.Equal(t, []time.Duration{700 * time.Millisecond}, slept)
	})

	t.Run("never speeds up a slow operation", func(t *testing.T) {
		var slept []time.Duration
		th := recordingThrottle(1024, 1024, &slept)

		require.NoError(t, th.Enforce(context.Background(), time.Second))
		require.NoError(t, th.Enforce(context.Background(), 3*time.Second))
		assert.Empty(t, slept)
	})

	t.Run("inert when unthrottled", func(t *testing.T) {
		var slept []time.Duration
		th := recordingThrottle(1024, 0, &slept)
		assert.False(t, th.Enabled())

		require.NoError(t, th.Enforce(context.Background(), 0))
		assert.Empty(t, slept)
	})
}

func TestThrottleEnforceRealClock(t *testing.T) {
	// 1024 bytes at 20480 B/s: 50ms per chunk.
	th := NewThrottle(1024, 20480)
	start := time.Now()
	require.NoError(t, th.Enforce(context.Background(), 0))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestThrottleEnforceCancelled(t *testing.T) {
	th := NewThrottle(1024, 1) // 1024s per chunk
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := th.Enforce(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	b := New(Settings{MinSamples: 2, TripRatio: 0.5, Cooldown: 50 * time.Millisecond})
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)

	require.False(t, b.Allow(ctx), "breaker should open once the trip ratio is hit")

	time.Sleep(60 * time.Millisecond)
	require.True(t, b.Allow(ctx), "breaker should probe after the cooldown")
	b.Report(ctx, true)
	require.True(t, b.Allow(ctx), "a successful probe should close the breaker")
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := New(Settings{MinSamples: 1, TripRatio: 0.5, Cooldown: 20 * time.Millisecond})
	ctx := context.Background()

	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))

	require.Eventually(t, func() bool { return b.Allow(ctx) }, 100*time.Millisecond, 5*time.Millisecond)
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx), "a failed probe should reopen the breaker")
}

func TestBreakerSuccessesKeepItClosed(t *testing.T) {
	b := New(Settings{MinSamples: 2, TripRatio: 0.5, Cooldown: time.Second})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, true)
	}
	// One failure amid many successes stays under the ratio.
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, base*2, Backoff(base, 2, 0))
	require.Equal(t, base*8, Backoff(base, 4, 0))
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, base*2-base*2/5)
		require.LessOrEqual(t, d, base*2+base*2/5)
	}
}

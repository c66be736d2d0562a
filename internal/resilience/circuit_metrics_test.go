package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBreakerTelemetryFollowsTransitions(t *testing.T) {
	breakerState.Reset()
	breakerTransitions.Reset()
	breakerTrips.Reset()

	b := New(Settings{MinSamples: 1, TripRatio: 0.5, Cooldown: 20 * time.Millisecond, Target: "refdata-cache"})
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("refdata-cache")))

	require.Eventually(t, func() bool { return b.Allow(ctx) }, 100*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("refdata-cache")))

	b.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("refdata-cache")))

	require.Equal(t, 1.0, testutil.ToFloat64(breakerTrips.WithLabelValues("refdata-cache")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("refdata-cache", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("refdata-cache", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("refdata-cache", "half_open", "closed")))
}

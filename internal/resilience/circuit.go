// Package resilience holds the failure-handling primitives shared by the
// Redis-backed collaborators: a circuit breaker guarding the reference-data
// cache and a jittered backoff used when contending for the refresh lock.
package resilience

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// State is the breaker position.
type State int

const (
	// Closed lets traffic through while counting outcomes.
	Closed State = iota
	// Open short-circuits callers until the cooldown elapses.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker.
type Settings struct {
	// MinSamples is how many outcomes must be observed before the trip
	// ratio is evaluated.
	MinSamples int
	// TripRatio is the failure fraction that opens the breaker.
	TripRatio float64
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Target names the guarded dependency in metrics and logs.
	Target string
	// Logger receives transition events. Falls back to the context logger.
	Logger *zerolog.Logger
}

// Breaker is a failure-ratio circuit breaker. When the guarded dependency
// keeps failing, Allow starts returning false and callers degrade (the
// reference-data cache treats that as a miss and reads the database).
type Breaker struct {
	cfg Settings

	mu       sync.Mutex
	state    State
	ok       int
	bad      int
	openedAt time.Time
}

// New builds a breaker, substituting conservative defaults for zero settings.
func New(cfg Settings) *Breaker {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 1
	}
	if cfg.TripRatio <= 0 || cfg.TripRatio > 1 {
		cfg.TripRatio = 0.5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	b := &Breaker{cfg: cfg}
	recordBreakerState(b.label(), Closed)
	return b
}

// Allow reports whether a call may proceed. An open breaker admits the first
// caller after the cooldown and moves to half-open to sample the dependency.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.cfg.Cooldown {
		return false
	}
	b.moveTo(ctx, HalfOpen)
	return true
}

// Report feeds a call outcome back into the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.moveTo(ctx, Closed)
		} else {
			b.moveTo(ctx, Open)
		}
		return
	}

	if success {
		b.ok++
	} else {
		b.bad++
	}
	total := b.ok + b.bad
	if total < b.cfg.MinSamples {
		return
	}
	if float64(b.bad)/float64(total) >= b.cfg.TripRatio {
		b.moveTo(ctx, Open)
		return
	}
	// Halve the window so a bad stretch long ago cannot trip the breaker
	// after the dependency has recovered.
	if total > 2*b.cfg.MinSamples {
		b.ok = (b.ok + 1) / 2
		b.bad = (b.bad + 1) / 2
	}
}

func (b *Breaker) moveTo(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.ok, b.bad = 0, 0
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	recordBreakerState(b.label(), next)
	recordBreakerTransition(b.label(), prev, next)
	b.logTransition(ctx, prev, next)
}

func (b *Breaker) label() string {
	if b.cfg.Target == "" {
		return "default"
	}
	return b.cfg.Target
}

func (b *Breaker) logTransition(ctx context.Context, from, to State) {
	logger := b.cfg.Logger
	if logger == nil {
		logger = zerolog.Ctx(ctx)
	}
	evt := logger.Warn().
		Str("target", b.label()).
		Str("from", from.String()).
		Str("to", to.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("circuit_breaker_transition")
}

// Backoff returns the delay before retry attempt n: base doubled per attempt
// with an optional +/- jitter fraction so contending lockers spread out.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	for ; attempt > 1; attempt-- {
		base *= 2
	}
	if jitter <= 0 {
		return base
	}
	spread := float64(base) * jitter
	return base + time.Duration((rand.Float64()*2-1)*spread)
}

// Package ratelimit throttles the public quote endpoint per client. A quote
// fans out into matrix, discount and tax lookups, so a burst from one caller
// is bounded before it reaches the database.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow counts events in a rolling Redis sorted set per client key.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Decision is the outcome of a Take call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Take records one event for key and decides whether it fits the limit. A
// nil client or non-positive limit disables limiting.
func (s SlidingWindow) Take(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	now := time.Now()
	if s.Client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}

	bucket := s.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := s.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", cutoff)
	pipe.ZAdd(ctx, bucket, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: now.Add(window)}, err
	}

	seen := int(count.Val())
	d := Decision{
		Allowed:   seen <= limit,
		Remaining: limit - seen,
		ResetAt:   now.Add(window),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// Package coupon isolates the single piece of mutable shared state in the
// pricing model: the coupon usage counters. Reads feed the pricing snapshot;
// the check-and-increment happens behind a row lock inside the order
// transaction so concurrent checkouts can never oversubscribe a limit.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shadecraft/backend-blinds/internal/pricing"
)

// ErrNotFound indicates no coupon carries the given code.
var ErrNotFound = errors.New("coupon not found")

// InsertRedemptionParams records one consumed usage slot.
type InsertRedemptionParams struct {
	CouponID   uuid.UUID
	OrderID    uuid.UUID
	CustomerID *uuid.UUID
	Amount     decimal.Decimal
}

// Querier captures the persistence methods the coupon service requires.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (pricing.Coupon, error)
	GetCouponByCodeForUpdate(ctx context.Context, code string) (pricing.Coupon, error)
	CountRedemptionsByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int64, error)
	RedemptionExists(ctx context.Context, couponID, orderID uuid.UUID) (bool, error)
	InsertRedemption(ctx context.Context, arg InsertRedemptionParams) error
	IncrementTimesUsed(ctx context.Context, couponID uuid.UUID) error
}

// Service evaluates and settles coupon usage.
type Service struct {
	Q Querier
}

// Load reads the current state of a coupon for the pricing snapshot. It never
// mutates anything, so quoting a cart any number of times consumes no usage
// slots. A missing code returns (nil, nil); the engine reports NOT_FOUND.
func (s *Service) Load(ctx context.Context, code string, customerID *uuid.UUID) (*pricing.Coupon, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, nil
	}
	c, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load coupon %q: %w", trimmed, err)
	}
	if customerID != nil && c.UsageLimitPerCustomer != nil {
		used, err := s.Q.CountRedemptionsByCustomer(ctx, c.ID, *customerID)
		if err != nil {
			return nil, fmt.Errorf("count coupon uses: %w", err)
		}
		c.CustomerUses = int32(used)
	}
	return &c, nil
}

// LockedState reads a coupon FOR UPDATE so confirmation prices against the
// exact usage counters the subsequent Redeem will check. Callers must hold an
// open transaction; the row lock lives until that transaction ends. A missing
// code returns (nil, nil) like Load.
func (s *Service) LockedState(ctx context.Context, code string, customerID *uuid.UUID) (*pricing.Coupon, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, nil
	}
	c, err := s.Q.GetCouponByCodeForUpdate(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock coupon %q: %w", trimmed, err)
	}
	if customerID != nil && c.UsageLimitPerCustomer != nil {
		used, err := s.Q.CountRedemptionsByCustomer(ctx, c.ID, *customerID)
		if err != nil {
			return nil, fmt.Errorf("count coupon uses: %w", err)
		}
		c.CustomerUses = int32(used)
	}
	return &c, nil
}

// Redeem consumes one usage slot at order confirmation. The caller runs it
// inside the same transaction that persists the order, with Q bound to that
// transaction: the FOR UPDATE read serializes concurrent redemptions, so when
// one slot remains exactly one of two racing checkouts succeeds and the other
// sees USAGE_LIMIT_REACHED. Idempotent per order. Rolling back the enclosing
// transaction rolls the increment back with it.
func (s *Service) Redeem(ctx context.Context, code string, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) error {
	if s == nil || s.Q == nil {
		return errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil
	}
	c, err := s.Q.GetCouponByCodeForUpdate(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.RejectCoupon(trimmed, pricing.CouponNotFound)
		}
		return fmt.Errorf("lock coupon %q: %w", trimmed, err)
	}

	exists, err := s.Q.RedemptionExists(ctx, c.ID, orderID)
	if err != nil {
		return fmt.Errorf("check redemption: %w", err)
	}
	if exists {
		return nil
	}

	if c.UsageLimitTotal != nil && c.TimesUsed >= *c.UsageLimitTotal {
		return pricing.RejectCoupon(trimmed, pricing.CouponUsageLimitReached)
	}
	if customerID != nil && c.UsageLimitPerCustomer != nil {
		used, err := s.Q.CountRedemptionsByCustomer(ctx, c.ID, *customerID)
		if err != nil {
			return fmt.Errorf("count coupon uses: %w", err)
		}
		if int32(used) >= *c.UsageLimitPerCustomer {
			return pricing.RejectCoupon(trimmed, pricing.CouponUsageLimitReached)
		}
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if err := s.Q.InsertRedemption(ctx, InsertRedemptionParams{
		CouponID:   c.ID,
		OrderID:    orderID,
		CustomerID: customerID,
		Amount:     amount,
	}); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	if err := s.Q.IncrementTimesUsed(ctx, c.ID); err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}

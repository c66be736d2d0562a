package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/shadecraft/backend-blinds/internal/pricing"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, letting the
// same store run standalone reads and transaction-scoped writes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements Querier over Postgres.
type Store struct {
	DB DBTX
}

var percentBase = decimal.NewFromInt(100)

// WithTx binds the store to a transaction so redemptions commit or roll back
// with the order.
func (s Store) WithTx(tx pgx.Tx) Store {
	return Store{DB: tx}
}

const couponColumns = `id, code, label, scope, kind, value::text, min_purchase::text,
	stackable_with_coupons, stackable_with_discounts, valid_from, valid_to, active,
	product_ids, category_ids, usage_limit_total, usage_limit_per_customer, times_used`

func (s Store) GetCouponByCode(ctx context.Context, code string) (pricing.Coupon, error) {
	return s.getCoupon(ctx, `SELECT `+couponColumns+` FROM coupons WHERE lower(code) = lower($1)`, code)
}

func (s Store) GetCouponByCodeForUpdate(ctx context.Context, code string) (pricing.Coupon, error) {
	return s.getCoupon(ctx, `SELECT `+couponColumns+` FROM coupons WHERE lower(code) = lower($1) FOR UPDATE`, code)
}

func (s Store) getCoupon(ctx context.Context, query, code string) (pricing.Coupon, error) {
	var (
		c          pricing.Coupon
		value      string
		minSpend   string
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
		limitTotal pgtype.Int4
		limitPer   pgtype.Int4
	)
	row := s.DB.QueryRow(ctx, query, code)
	err := row.Scan(
		&c.ID, &c.Code, &c.Label, &c.Scope, &c.Kind, &value, &minSpend,
		&c.StackableWithCoupons, &c.StackableWithDiscounts, &validFrom, &validTo, &c.Active,
		&c.ProductIDs, &c.CategoryIDs, &limitTotal, &limitPer, &c.TimesUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Coupon{}, ErrNotFound
		}
		return pricing.Coupon{}, err
	}
	if c.Value, err = decimal.NewFromString(value); err != nil {
		return pricing.Coupon{}, fmt.Errorf("parse coupon value: %w", err)
	}
	if c.Kind == pricing.DiscountPercentage {
		// The value column is a whole-number percent; the engine wants a fraction.
		c.Value = c.Value.Div(percentBase)
	}
	if c.MinPurchase, err = decimal.NewFromString(minSpend); err != nil {
		return pricing.Coupon{}, fmt.Errorf("parse coupon min purchase: %w", err)
	}
	c.ValidFrom = nullableTime(validFrom)
	c.ValidTo = nullableTime(validTo)
	c.UsageLimitTotal = nullableInt32(limitTotal)
	c.UsageLimitPerCustomer = nullableInt32(limitPer)
	return c, nil
}

func (s Store) CountRedemptionsByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.QueryRow(ctx,
		`SELECT count(*) FROM coupon_redemptions WHERE coupon_id = $1 AND customer_id = $2`,
		couponID, customerID,
	).Scan(&count)
	return count, err
}

func (s Store) RedemptionExists(ctx context.Context, couponID, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM coupon_redemptions WHERE coupon_id = $1 AND order_id = $2)`,
		couponID, orderID,
	).Scan(&exists)
	return exists, err
}

func (s Store) InsertRedemption(ctx context.Context, arg InsertRedemptionParams) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO coupon_redemptions (coupon_id, order_id, customer_id, amount) VALUES ($1, $2, $3, $4)`,
		arg.CouponID, arg.OrderID, arg.CustomerID, arg.Amount,
	)
	return err
}

func (s Store) IncrementTimesUsed(ctx context.Context, couponID uuid.UUID) error {
	_, err := s.DB.Exec(ctx, `UPDATE coupons SET times_used = times_used + 1 WHERE id = $1`, couponID)
	return err
}

func nullableTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullableInt32(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	val := v.Int32
	return &val
}

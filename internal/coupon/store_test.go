package coupon

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/shadecraft/backend-blinds/internal/pricing"
)

// rowDB hands back a single canned row so getCoupon's scan-and-convert path
// can run without a database.
type rowDB struct{ row []any }

func (f rowDB) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f rowDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (f rowDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return cannedRow{vals: f.row}
}

type cannedRow struct{ vals []any }

func (r cannedRow) Scan(dest ...any) error {
	for i, d := range dest {
		if r.vals[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

func couponRow(kind pricing.DiscountKind, value string) []any {
	return []any{
		uuid.New(), "SAVE", "save promo", pricing.ScopeAll, kind, value, "0",
		true, true, nil, nil, true,
		nil, nil, nil, nil, int32(0),
	}
}

func TestGetCouponConvertsPercentToFraction(t *testing.T) {
	s := Store{DB: rowDB{row: couponRow(pricing.DiscountPercentage, "25")}}

	c, err := s.GetCouponByCode(context.Background(), "SAVE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 25 in the value column means 25% off, so the engine gets 0.25.
	if !c.Value.Equal(decimal.NewFromFloat(0.25)) {
		t.Fatalf("expected 0.25, got %s", c.Value)
	}
}

func TestGetCouponLeavesFixedValueUntouched(t *testing.T) {
	s := Store{DB: rowDB{row: couponRow(pricing.DiscountFixed, "10.00")}}

	c, err := s.GetCouponByCode(context.Background(), "SAVE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10.00, got %s", c.Value)
	}
}

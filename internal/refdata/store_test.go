package refdata

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

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeRows replays canned column values through the pgx.Rows interface so the
// scan-and-convert paths can be exercised without a database.
type fakeRows struct {
	data [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	for i, d := range dest {
		if row[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

type fakeDB struct{ rows [][]any }

func (f fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return &fakeRows{data: f.rows, idx: -1}, nil
}

func (f fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return noRow{}
}

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func TestListActiveDiscountsConvertsPercentToFraction(t *testing.T) {
	// Admins enter 10 for a 10% discount; the engine multiplies by 0.10.
	s := Store{DB: fakeDB{rows: [][]any{
		{uuid.New(), "ten off", nil, pricing.ScopeAll, pricing.DiscountPercentage, "10", "0",
			true, true, nil, nil, true, nil, nil},
		{uuid.New(), "twenty flat", nil, pricing.ScopeAll, pricing.DiscountFixed, "20.00", "0",
			true, true, nil, nil, true, nil, nil},
	}}}

	out, err := s.ListActiveDiscounts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 discounts, got %d", len(out))
	}
	if !out[0].Value.Equal(dec("0.10")) {
		t.Fatalf("expected percentage value 0.10, got %s", out[0].Value)
	}
	if !out[1].Value.Equal(dec("20.00")) {
		t.Fatalf("expected fixed value untouched at 20.00, got %s", out[1].Value)
	}
}

func TestListTierDiscountsConvertsPercentToFraction(t *testing.T) {
	s := Store{DB: fakeDB{rows: [][]any{{"gold", "5", true}}}}

	out, err := s.ListTierDiscounts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 tier, got %d", len(out))
	}
	if !out[0].Percent.Equal(dec("0.05")) {
		t.Fatalf("expected tier percent 0.05, got %s", out[0].Percent)
	}
}

func TestListVolumeBreaksConvertsPercentToFraction(t *testing.T) {
	productID := uuid.New()
	s := Store{DB: fakeDB{rows: [][]any{{productID, 3, "15"}}}}

	out, err := s.ListVolumeBreaks(context.Background(), []uuid.UUID{productID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 break, got %d", len(out))
	}
	if !out[0].PercentOff.Equal(dec("0.15")) {
		t.Fatalf("expected percent off 0.15, got %s", out[0].PercentOff)
	}
}

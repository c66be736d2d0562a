package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shadecraft/backend-blinds/internal/checkout"
	"github.com/shadecraft/backend-blinds/internal/coupon"
	"github.com/shadecraft/backend-blinds/internal/pricing"
	"github.com/shadecraft/backend-blinds/internal/refdata"
)

var (
	productID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	vendorID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type staticQuerier struct {
	coupon *pricing.Coupon
}

func (staticQuerier) ListProductsByIDs(_ context.Context, ids []uuid.UUID) ([]pricing.Product, error) {
	return []pricing.Product{{
		ID:             productID,
		Name:           "Roller Shade",
		VendorID:       vendorID,
		WeightPerSqFt:  decimal.RequireFromString("0.5"),
		WidthMinInches: decimal.NewFromInt(12),
		WidthMaxInches: decimal.NewFromInt(72),
		HeightMin:      decimal.NewFromInt(12),
		HeightMax:      decimal.NewFromInt(84),
	}}, nil
}

func (staticQuerier) ListMatrixEntries(context.Context, uuid.UUID) ([]pricing.MatrixEntry, error) {
	return []pricing.MatrixEntry{{
		ProductID: productID,
		WidthMin:  decimal.NewFromInt(12), WidthMax: decimal.NewFromInt(72),
		HeightMin: decimal.NewFromInt(12), HeightMax: decimal.NewFromInt(84),
		BasePrice: decimal.NewFromInt(100),
	}}, nil
}

func (staticQuerier) ListSurchargeRules(context.Context, uuid.UUID) ([]pricing.SurchargeRule, error) {
	return nil, nil
}

func (staticQuerier) ListActiveDiscounts(context.Context) ([]pricing.Discount, error) {
	return nil, nil
}

func (staticQuerier) ListTierDiscounts(context.Context) ([]pricing.TierDiscount, error) {
	return nil, nil
}

func (staticQuerier) ListVolumeBreaks(context.Context, []uuid.UUID) ([]pricing.VolumeBreak, error) {
	return nil, nil
}

func (staticQuerier) GetJurisdictionByPostal(context.Context, string) (pricing.Jurisdiction, error) {
	return pricing.Jurisdiction{}, refdata.ErrNotFound
}

func (staticQuerier) GetStateDefaultRate(_ context.Context, state string) (pricing.Jurisdiction, error) {
	return pricing.Jurisdiction{
		State:     state,
		StateRate: decimal.RequireFromString("0.05"),
	}, nil
}

func (staticQuerier) ListShippingRules(context.Context) ([]pricing.ShippingRule, error) {
	return []pricing.ShippingRule{{
		ID:        uuid.New(),
		DestZone:  "*",
		WeightMax: decimal.NewFromInt(1000),
		Rate:      decimal.NewFromInt(20),
	}}, nil
}

type staticCouponQuerier struct {
	c *pricing.Coupon
}

func (s staticCouponQuerier) GetCouponByCode(_ context.Context, code string) (pricing.Coupon, error) {
	if s.c == nil {
		return pricing.Coupon{}, coupon.ErrNotFound
	}
	return *s.c, nil
}

func (s staticCouponQuerier) GetCouponByCodeForUpdate(ctx context.Context, code string) (pricing.Coupon, error) {
	return s.GetCouponByCode(ctx, code)
}

func (staticCouponQuerier) CountRedemptionsByCustomer(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

func (staticCouponQuerier) RedemptionExists(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (staticCouponQuerier) InsertRedemption(context.Context, coupon.InsertRedemptionParams) error {
	return nil
}

func (staticCouponQuerier) IncrementTimesUsed(context.Context, uuid.UUID) error {
	return nil
}

func newService(q staticQuerier) *checkout.Service {
	return &checkout.Service{
		Loader: &refdata.Loader{
			Q:       q,
			Cache:   refdata.NewCache(nil, 0),
			Coupons: &coupon.Service{Q: staticCouponQuerier{c: q.coupon}},
			Now:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		},
		Engine: pricing.Engine{Currency: "USD"},
	}
}

func quoteInput() checkout.Input {
	return checkout.Input{
		Lines: []checkout.LineInput{{
			ProductID:    productID,
			WidthInches:  decimal.NewFromInt(36),
			HeightInches: decimal.NewFromInt(48),
			Qty:          2,
		}},
		Destination: checkout.DestinationInput{State: "OR"},
	}
}

func TestQuoteComputesFullBreakdown(t *testing.T) {
	svc := newService(staticQuerier{})

	b, err := svc.Quote(context.Background(), quoteInput())
	require.NoError(t, err)
	// 2 x $100 = 200, no discounts, 5% tax = 10, shipping 20.
	require.Equal(t, "200", b.Subtotal.String())
	require.Equal(t, "10", b.Tax.String())
	require.Equal(t, "20", b.Shipping.String())
	require.Equal(t, "230", b.GrandTotal.String())
	require.Equal(t, "USD", b.Currency)
}

func TestQuoteIsRepeatable(t *testing.T) {
	svc := newService(staticQuerier{})
	in := quoteInput()

	first, err := svc.Quote(context.Background(), in)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := svc.Quote(context.Background(), in)
		require.NoError(t, err)
		require.True(t, first.GrandTotal.Equal(again.GrandTotal))
	}
}

func TestQuoteSurfacesCouponRejection(t *testing.T) {
	svc := newService(staticQuerier{})
	in := quoteInput()
	in.CouponCode = "GHOST"

	_, err := svc.Quote(context.Background(), in)
	ce, ok := pricing.AsCouponError(err)
	require.True(t, ok)
	require.Equal(t, pricing.CouponNotFound, ce.Reason)
}

func newHandler(q staticQuerier) *checkout.Handler {
	return &checkout.Handler{Svc: newService(q), Validate: validator.New()}
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestQuoteHandlerReturnsBreakdown(t *testing.T) {
	rec := postJSON(t, newHandler(staticQuerier{}).Quote, quoteInput())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data pricing.Breakdown `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "230", resp.Data.GrandTotal.String())
	require.NotEmpty(t, resp.Data.Adjustments)
}

func TestQuoteHandlerRejectsInvalidBody(t *testing.T) {
	in := quoteInput()
	in.Lines[0].Qty = 0
	rec := postJSON(t, newHandler(staticQuerier{}).Quote, in)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteHandlerReportsDimensionBounds(t *testing.T) {
	in := quoteInput()
	in.Lines[0].WidthInches = decimal.NewFromInt(200)
	rec := postJSON(t, newHandler(staticQuerier{}).Quote, in)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error struct {
			Code    string                  `json:"code"`
			Details pricing.DimensionDetail `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "OUT_OF_RANGE_DIMENSION", resp.Error.Code)
	require.Equal(t, "200", resp.Error.Details.Width)
	require.Equal(t, "72", resp.Error.Details.WidthMax)
}

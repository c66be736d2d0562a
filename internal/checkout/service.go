// Package checkout exposes the two entry points of the pricing platform:
// Quote, a side-effect-free computation a customer can repeat any number of
// times, and Confirm, which re-prices against fresh reference data and turns
// the result into a durable order inside one transaction.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shadecraft/backend-blinds/internal/coupon"
	"github.com/shadecraft/backend-blinds/internal/events"
	"github.com/shadecraft/backend-blinds/internal/obs"
	"github.com/shadecraft/backend-blinds/internal/order"
	"github.com/shadecraft/backend-blinds/internal/pricing"
	"github.com/shadecraft/backend-blinds/internal/refdata"
)

// LineInput is one configured product in a quote or confirmation request.
type LineInput struct {
	ProductID    uuid.UUID            `json:"productId" validate:"required"`
	WidthInches  decimal.Decimal      `json:"widthInches" validate:"required"`
	HeightInches decimal.Decimal      `json:"heightInches" validate:"required"`
	Options      map[string]uuid.UUID `json:"options"`
	Qty          int                  `json:"qty" validate:"required,min=1"`
}

// DestinationInput is where the order ships.
type DestinationInput struct {
	State      string `json:"state" validate:"required,len=2"`
	PostalCode string `json:"postalCode"`
	Zone       string `json:"zone"`
}

// Input is the request body shared by Quote and Confirm.
type Input struct {
	Lines        []LineInput      `json:"lines" validate:"required,min=1,dive"`
	Destination  DestinationInput `json:"destination" validate:"required"`
	CustomerID   *uuid.UUID       `json:"customerId"`
	CustomerTier string           `json:"customerTier"`
	CouponCode   string           `json:"couponCode"`
}

// ConfirmOutput is the result of a successful confirmation.
type ConfirmOutput struct {
	OrderID   uuid.UUID         `json:"orderId"`
	Status    string            `json:"status"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

// Service prices carts and confirms orders.
type Service struct {
	Pool        *pgxpool.Pool
	Loader      *refdata.Loader
	Engine      pricing.Engine
	CouponStore coupon.Store
	Orders      order.Store
	Events      *events.Bus
	Log         zerolog.Logger
}

// Quote prices the cart against a fresh snapshot. It writes nothing: no usage
// counters move, no rows are created, so a customer can requote freely.
func (s *Service) Quote(ctx context.Context, in Input) (pricing.Breakdown, error) {
	if s == nil || s.Loader == nil {
		return pricing.Breakdown{}, errors.New("checkout service not configured")
	}
	snap, cart, customer, dest, err := s.load(ctx, in)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	start := time.Now()
	b, err := s.Engine.Price(snap, cart, customer, dest, in.CouponCode)
	observeStage("engine", start)
	countResult(obs.QuoteTotal, err)
	return b, err
}

// Confirm re-prices the cart inside a transaction and persists the result.
// The coupon is re-read under a row lock so its usage check and increment are
// atomic with the order insert: two racing confirmations of the last slot
// serialize, and the loser gets USAGE_LIMIT_REACHED with nothing written.
func (s *Service) Confirm(ctx context.Context, in Input) (ConfirmOutput, error) {
	if s == nil || s.Loader == nil || s.Pool == nil {
		return ConfirmOutput{}, errors.New("checkout service not configured")
	}
	snap, cart, customer, dest, err := s.load(ctx, in)
	if err != nil {
		countResult(obs.ConfirmTotal, err)
		return ConfirmOutput{}, err
	}

	orderID := uuid.New()
	var breakdown pricing.Breakdown

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ConfirmOutput{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	coupons := &coupon.Service{Q: s.CouponStore.WithTx(tx)}

	if code := in.CouponCode; code != "" {
		// Fresh read under the row lock; the snapshot copy may be stale.
		locked, err := coupons.LockedState(ctx, code, in.CustomerID)
		if err != nil {
			countResult(obs.ConfirmTotal, err)
			return ConfirmOutput{}, err
		}
		snap.Coupon = locked
	}

	start := time.Now()
	breakdown, err = s.Engine.Price(snap, cart, customer, dest, in.CouponCode)
	observeStage("engine", start)
	if err != nil {
		countResult(obs.ConfirmTotal, err)
		return ConfirmOutput{}, err
	}

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return ConfirmOutput{}, fmt.Errorf("encode breakdown: %w", err)
	}
	items, err := orderItems(orderID, breakdown.Lines)
	if err != nil {
		return ConfirmOutput{}, err
	}
	var couponCode *string
	if in.CouponCode != "" {
		couponCode = &in.CouponCode
	}
	err = s.Orders.WithTx(tx).InsertOrder(ctx, order.InsertOrderParams{
		ID:            orderID,
		CustomerID:    in.CustomerID,
		Currency:      breakdown.Currency,
		CouponCode:    couponCode,
		Subtotal:      breakdown.Subtotal,
		DiscountTotal: breakdown.DiscountTotal,
		Tax:           breakdown.Tax,
		Shipping:      breakdown.Shipping,
		GrandTotal:    breakdown.GrandTotal,
		DestState:     dest.State,
		DestPostal:    dest.PostalCode,
		Breakdown:     breakdownJSON,
		Items:         items,
	})
	if err != nil {
		countResult(obs.ConfirmTotal, err)
		return ConfirmOutput{}, err
	}

	if in.CouponCode != "" && breakdown.CouponDiscount.IsPositive() {
		if err := coupons.Redeem(ctx, in.CouponCode, orderID, in.CustomerID, breakdown.CouponDiscount); err != nil {
			countResult(obs.ConfirmTotal, err)
			return ConfirmOutput{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		countResult(obs.ConfirmTotal, err)
		return ConfirmOutput{}, err
	}
	countResult(obs.ConfirmTotal, nil)

	s.emitOrderEvents(ctx, orderID, in, breakdown)

	return ConfirmOutput{OrderID: orderID, Status: order.StatusConfirmed, Breakdown: breakdown}, nil
}

// emitOrderEvents publishes the post-commit event trail for a confirmed
// order. Emission failures are logged, never surfaced: the order is already
// durable.
func (s *Service) emitOrderEvents(ctx context.Context, orderID uuid.UUID, in Input, b pricing.Breakdown) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":    orderID,
		"grandTotal": b.GrandTotal,
		"currency":   b.Currency,
	}
	if in.CustomerID != nil {
		payload["customerId"] = *in.CustomerID
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderConfirmed, orderID, payload); err != nil {
		s.Log.Error().Err(err).Str("order_id", orderID.String()).Msg("emit order.confirmed")
	}
	if b.CouponDiscount.IsPositive() {
		if _, err := s.Events.Emit(ctx, events.TopicCouponRedeemed, orderID, map[string]any{
			"orderId": orderID,
			"code":    in.CouponCode,
			"amount":  b.CouponDiscount,
		}); err != nil {
			s.Log.Error().Err(err).Str("order_id", orderID.String()).Msg("emit coupon.redeemed")
		}
	}
}

// load builds the snapshot and converts transport types to engine types.
func (s *Service) load(ctx context.Context, in Input) (*pricing.Snapshot, []pricing.LineItem, pricing.CustomerContext, pricing.Destination, error) {
	var dest pricing.Destination
	if len(in.Lines) == 0 {
		return nil, nil, pricing.CustomerContext{}, dest, fmt.Errorf("empty cart: %w", pricing.ErrInvalidQuantity)
	}

	ids := make([]uuid.UUID, 0, len(in.Lines))
	seen := map[uuid.UUID]bool{}
	cart := make([]pricing.LineItem, 0, len(in.Lines))
	for _, ln := range in.Lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
		options := make(map[pricing.OptionCategory]uuid.UUID, len(ln.Options))
		for cat, id := range ln.Options {
			options[pricing.OptionCategory(cat)] = id
		}
		cart = append(cart, pricing.LineItem{
			ProductID: ln.ProductID,
			Qty:       ln.Qty,
			Width:     ln.WidthInches,
			Height:    ln.HeightInches,
			Options:   options,
		})
	}

	dest = pricing.Destination{
		PostalCode: in.Destination.PostalCode,
		State:      in.Destination.State,
		Zone:       in.Destination.Zone,
	}
	start := time.Now()
	snap, err := s.Loader.Snapshot(ctx, refdata.Request{
		ProductIDs:  ids,
		Destination: dest,
		CouponCode:  in.CouponCode,
		CustomerID:  in.CustomerID,
	})
	observeStage("snapshot", start)
	if err != nil {
		return nil, nil, pricing.CustomerContext{}, dest, err
	}
	customer := pricing.CustomerContext{ID: in.CustomerID, Tier: in.CustomerTier}
	return snap, cart, customer, dest, nil
}

func orderItems(orderID uuid.UUID, lines []pricing.PricedLine) ([]order.Item, error) {
	items := make([]order.Item, 0, len(lines))
	for _, ln := range lines {
		opts, err := json.Marshal(ln.Item.Options)
		if err != nil {
			return nil, fmt.Errorf("encode line options: %w", err)
		}
		items = append(items, order.Item{
			ID:           uuid.New(),
			OrderID:      orderID,
			ProductID:    ln.Product.ID,
			WidthInches:  ln.Item.Width,
			HeightInches: ln.Item.Height,
			Options:      opts,
			Qty:          int32(ln.Item.Qty),
			UnitPrice:    ln.UnitPrice.Round(2),
			LineTotal:    ln.Total.Round(2),
		})
	}
	return items, nil
}

func countResult(c *prometheus.CounterVec, err error) {
	if ce, ok := pricing.AsCouponError(err); ok && obs.CouponRejections != nil {
		obs.CouponRejections.WithLabelValues(string(ce.Reason)).Inc()
	}
	if c == nil {
		return
	}
	result := "ok"
	if _, ok := pricing.AsCouponError(err); ok {
		result = "coupon_rejected"
	} else if err != nil {
		result = "error"
	}
	c.WithLabelValues(result).Inc()
}

func observeStage(stage string, start time.Time) {
	if obs.PricingStageLatency != nil {
		obs.PricingStageLatency.WithLabelValues(stage).Observe(obs.DurationMillis(time.Since(start)))
	}
}

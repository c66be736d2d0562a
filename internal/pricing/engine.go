// Package pricing implements the order pricing pipeline for custom window
// coverings: dimensional base price, option surcharges, per-line totals, the
// discount stack, tax and shipping, assembled into an auditable breakdown.
//
// Every stage is a pure function of an immutable reference-data Snapshot, so a
// computation is deterministic and internally consistent even while the
// underlying tables change. The one piece of shared mutable state, the coupon
// usage counter, lives outside this package (internal/coupon).
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine prices carts against reference-data snapshots.
type Engine struct {
	Currency string
}

// Price runs the full pipeline for one cart. Lines are priced serially; the
// stages are pure CPU work measured in microseconds, so fanning out buys
// nothing and a serial loop keeps the breakdown ordering trivially stable.
func (e Engine) Price(snap *Snapshot, cart []LineItem, customer CustomerContext, dest Destination, couponCode string) (Breakdown, error) {
	if snap == nil {
		return Breakdown{}, fmt.Errorf("nil snapshot: %w", ErrReferenceDataUnavailable)
	}
	if len(cart) == 0 {
		return Breakdown{}, fmt.Errorf("empty cart: %w", ErrInvalidQuantity)
	}

	lines := make([]PricedLine, 0, len(cart))
	subtotal := decimal.Zero
	for _, item := range cart {
		ln, err := PriceLine(snap, item)
		if err != nil {
			return Breakdown{}, err
		}
		lines = append(lines, ln)
		subtotal = subtotal.Add(ln.Total)
	}

	discounts, err := ResolveDiscounts(snap, lines, customer, couponCode)
	if err != nil {
		return Breakdown{}, err
	}
	discounted := subtotal.Sub(discounts.Total)

	jurisdiction, err := ResolveJurisdiction(snap, dest)
	if err != nil {
		return Breakdown{}, err
	}

	weight := CartWeight(lines)
	shipping, err := ComputeShipping(snap, dest, weight, discounted)
	if err != nil {
		return Breakdown{}, err
	}

	tax := ComputeTax(jurisdiction, discounted, shipping)

	return assemble(e.currency(), lines, discounts, tax, shipping)
}

func (e Engine) currency() string {
	if e.Currency == "" {
		return "USD"
	}
	return e.Currency
}

// assemble is the single rounding boundary. It rounds every monetary figure
// to cents (half up) exactly once, builds the ordered adjustment trail with
// running subtotals, and enforces the global invariants. An invariant failure
// aborts the whole computation; no partial total escapes.
func assemble(currency string, lines []PricedLine, discounts DiscountResult, tax, shipping decimal.Decimal) (Breakdown, error) {
	adjustments := make([]Adjustment, 0, len(lines)+len(discounts.Applied)+2)
	running := decimal.Zero
	subtotal := decimal.Zero

	for _, ln := range lines {
		amount := round2(ln.Total)
		running = running.Add(amount)
		subtotal = subtotal.Add(amount)
		label := fmt.Sprintf("%d x %s (%s x %s in)", ln.Item.Qty, ln.Product.Name, ln.Item.Width, ln.Item.Height)
		adjustments = append(adjustments, Adjustment{Label: label, Amount: amount, Running: running})
	}

	discountTotal := decimal.Zero
	for _, d := range discounts.Applied {
		amount := round2(d.Amount)
		if amount.IsZero() {
			continue
		}
		running = running.Sub(amount)
		discountTotal = discountTotal.Add(amount)
		adjustments = append(adjustments, Adjustment{Label: d.Label, Amount: amount.Neg(), Running: running})
	}

	taxAmount := round2(tax)
	running = running.Add(taxAmount)
	adjustments = append(adjustments, Adjustment{Label: "tax", Amount: taxAmount, Running: running})

	shippingAmount := round2(shipping)
	running = running.Add(shippingAmount)
	adjustments = append(adjustments, Adjustment{Label: "shipping", Amount: shippingAmount, Running: running})

	grand := subtotal.Sub(discountTotal).Add(taxAmount).Add(shippingAmount)

	b := Breakdown{
		Currency:       currency,
		Lines:          lines,
		CouponDiscount: round2(discounts.CouponAmount),
		Adjustments:    adjustments,
		Subtotal:       subtotal,
		DiscountTotal:  discountTotal,
		Tax:            taxAmount,
		Shipping:       shippingAmount,
		GrandTotal:     grand,
	}
	if err := checkInvariants(b, running); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

func checkInvariants(b Breakdown, running decimal.Decimal) error {
	if b.Subtotal.IsNegative() {
		return fmt.Errorf("subtotal %s negative: %w", b.Subtotal, ErrInvariantViolation)
	}
	if b.DiscountTotal.GreaterThan(b.Subtotal) {
		return fmt.Errorf("discount %s exceeds subtotal %s: %w", b.DiscountTotal, b.Subtotal, ErrInvariantViolation)
	}
	if b.GrandTotal.IsNegative() {
		return fmt.Errorf("grand total %s negative: %w", b.GrandTotal, ErrInvariantViolation)
	}
	want := b.Subtotal.Sub(b.DiscountTotal).Add(b.Tax).Add(b.Shipping)
	if !b.GrandTotal.Equal(want) {
		return fmt.Errorf("grand total %s != %s: %w", b.GrandTotal, want, ErrInvariantViolation)
	}
	if !running.Equal(b.GrandTotal) {
		return fmt.Errorf("running total %s != grand total %s: %w", running, b.GrandTotal, ErrInvariantViolation)
	}
	return nil
}

// round2 rounds to cents, half up. Amounts in this engine are non-negative at
// the point of rounding, so decimal's half-away-from-zero is half-up.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

package pricing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolveDiscounts runs the discount stack in its fixed order:
//
//  1. per-vendor best discount, chosen by resulting dollar amount
//  2. customer tier discount on the post-vendor subtotal, or the larger of the
//     two when the tier discount does not stack with vendor discounts
//  3. volume repricing per product line, independent of 1-2
//  4. the coupon code, added when both the coupon and every kept stack
//     discount allow stacking, otherwise whichever of {coupon alone,
//     vendor+tier stack} gives the customer the larger discount
//
// The total is clamped so the post-discount subtotal never goes negative.
// Validity windows are evaluated against snap.TakenAt so replaying the same
// snapshot reproduces the same result.
func ResolveDiscounts(snap *Snapshot, lines []PricedLine, customer CustomerContext, couponCode string) (DiscountResult, error) {
	subtotal := decimal.Zero
	for _, ln := range lines {
		subtotal = subtotal.Add(ln.Total)
	}
	now := snap.TakenAt

	vendorApplied, vendorsAllowCoupon := resolveVendorDiscounts(snap, lines, now)
	vendorTotal := sumApplied(vendorApplied)

	stack := append([]AppliedDiscount{}, vendorApplied...)
	stackTotal := vendorTotal
	stackAllowsCoupon := vendorsAllowCoupon
	if tier, ok := snap.TierDiscounts[customer.Tier]; ok && tier.Percent.IsPositive() {
		if tier.StackableWithVendors {
			amount := subtotal.Sub(vendorTotal).Mul(tier.Percent)
			if amount.IsPositive() {
				stack = append(stack, AppliedDiscount{Label: "tier:" + tier.Tier, Amount: amount})
				stackTotal = stackTotal.Add(amount)
			}
		} else if tierAlone := subtotal.Mul(tier.Percent); tierAlone.GreaterThan(vendorTotal) {
			// Only the larger of tier vs vendor stack applies. The vendor
			// discounts are gone with the stack, and their coupon veto with them.
			stack = []AppliedDiscount{{Label: "tier:" + tier.Tier, Amount: tierAlone}}
			stackTotal = tierAlone
			stackAllowsCoupon = true
		}
	}

	volumeApplied := resolveVolumeBreaks(snap, lines)
	volumeTotal := sumApplied(volumeApplied)

	applied := append([]AppliedDiscount{}, stack...)
	total := stackTotal
	if couponCode != "" {
		couponAmount, couponLabel, err := evaluateCoupon(snap, lines, subtotal, couponCode, now)
		if err != nil {
			return DiscountResult{}, err
		}
		if snap.Coupon.StackableWithDiscounts && stackAllowsCoupon {
			applied = append(applied, AppliedDiscount{Label: couponLabel, Amount: couponAmount, Coupon: true})
			total = total.Add(couponAmount)
		} else if couponAmount.GreaterThan(stackTotal) {
			// Either side refusing to stack puts coupon and stack in
			// competition; the larger discount wins.
			applied = []AppliedDiscount{{Label: couponLabel, Amount: couponAmount, Coupon: true}}
			total = couponAmount
		}
	}

	applied = append(applied, volumeApplied...)
	total = total.Add(volumeTotal)

	if total.GreaterThan(subtotal) {
		// Clamp from the tail of the trail, never driving an entry negative.
		excess := total.Sub(subtotal)
		total = subtotal
		for i := len(applied) - 1; i >= 0 && excess.IsPositive(); i-- {
			cut := decimal.Min(applied[i].Amount, excess)
			applied[i].Amount = applied[i].Amount.Sub(cut)
			excess = excess.Sub(cut)
		}
	}

	couponTotal := decimal.Zero
	for _, a := range applied {
		if a.Coupon {
			couponTotal = couponTotal.Add(a.Amount)
		}
	}
	return DiscountResult{Total: total, Applied: applied, CouponAmount: couponTotal}, nil
}

// resolveVendorDiscounts picks, for each vendor represented in the cart, the
// single best-value active discount for that vendor's lines. Best value means
// the largest resulting dollar amount: fixed and percentage kinds are only
// comparable after computing what they are worth. The second return reports
// whether every chosen discount tolerates a coupon alongside it.
func resolveVendorDiscounts(snap *Snapshot, lines []PricedLine, now time.Time) ([]AppliedDiscount, bool) {
	byVendor := map[uuid.UUID]decimal.Decimal{}
	vendors := []uuid.UUID{}
	for _, ln := range lines {
		v := ln.Product.VendorID
		if _, ok := byVendor[v]; !ok {
			vendors = append(vendors, v)
		}
		byVendor[v] = byVendor[v].Add(ln.Total)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].String() < vendors[j].String() })

	var out []AppliedDiscount
	allowsCoupon := true
	for _, vendorID := range vendors {
		vendorSubtotal := byVendor[vendorID]
		best := decimal.Zero
		var bestDiscount Discount
		for _, d := range snap.Discounts {
			if d.VendorID == nil || *d.VendorID != vendorID {
				continue
			}
			if !discountUsable(d, now, vendorSubtotal) {
				continue
			}
			eligible := eligibleSubtotal(lines, d, &vendorID)
			amount := discountAmount(d, eligible)
			if amount.GreaterThan(best) {
				best = amount
				bestDiscount = d
			}
		}
		if best.IsPositive() {
			out = append(out, AppliedDiscount{Label: bestDiscount.Label, Amount: best})
			if !bestDiscount.StackableWithCoupons {
				allowsCoupon = false
			}
		}
	}
	return out, allowsCoupon
}

// resolveVolumeBreaks reprices each line that reaches a quantity break. The
// deepest satisfied break applies; breaks never combine on one line.
func resolveVolumeBreaks(snap *Snapshot, lines []PricedLine) []AppliedDiscount {
	var out []AppliedDiscount
	for _, ln := range lines {
		breaks := snap.VolumeBreaks[ln.Item.ProductID]
		best := decimal.Zero
		for _, vb := range breaks {
			if ln.Item.Qty >= vb.MinQty && vb.PercentOff.GreaterThan(best) {
				best = vb.PercentOff
			}
		}
		if best.IsPositive() {
			out = append(out, AppliedDiscount{
				Label:  "volume:" + ln.Product.Name,
				Amount: ln.Total.Mul(best),
			})
		}
	}
	return out
}

func evaluateCoupon(snap *Snapshot, lines []PricedLine, subtotal decimal.Decimal, code string, now time.Time) (decimal.Decimal, string, error) {
	c := snap.Coupon
	if c == nil || !strings.EqualFold(c.Code, code) || !c.Active {
		return decimal.Zero, "", RejectCoupon(code, CouponNotFound)
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return decimal.Zero, "", RejectCoupon(code, CouponExpired)
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return decimal.Zero, "", RejectCoupon(code, CouponExpired)
	}
	if c.UsageLimitTotal != nil && c.TimesUsed >= *c.UsageLimitTotal {
		return decimal.Zero, "", RejectCoupon(code, CouponUsageLimitReached)
	}
	if c.UsageLimitPerCustomer != nil && c.CustomerUses >= *c.UsageLimitPerCustomer {
		return decimal.Zero, "", RejectCoupon(code, CouponUsageLimitReached)
	}
	if subtotal.LessThan(c.MinPurchase) {
		return decimal.Zero, "", RejectCoupon(code, CouponMinimumNotMet)
	}
	eligible := eligibleSubtotal(lines, c.Discount, nil)
	if !eligible.IsPositive() {
		return decimal.Zero, "", RejectCoupon(code, CouponScopeMismatch)
	}
	amount := discountAmount(c.Discount, eligible)
	if !amount.IsPositive() {
		return decimal.Zero, "", RejectCoupon(code, CouponScopeMismatch)
	}
	return amount, "coupon:" + strings.ToUpper(c.Code), nil
}

func discountUsable(d Discount, now time.Time, subtotal decimal.Decimal) bool {
	if !d.Active {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && now.After(*d.ValidTo) {
		return false
	}
	return subtotal.GreaterThanOrEqual(d.MinPurchase)
}

// eligibleSubtotal sums the line totals the discount's scope reaches. When
// vendorID is set only that vendor's lines count.
func eligibleSubtotal(lines []PricedLine, d Discount, vendorID *uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, ln := range lines {
		if vendorID != nil && ln.Product.VendorID != *vendorID {
			continue
		}
		if !scopeMatches(d, ln) {
			continue
		}
		total = total.Add(ln.Total)
	}
	return total
}

func scopeMatches(d Discount, ln PricedLine) bool {
	switch d.Scope {
	case ScopeProducts:
		for _, id := range d.ProductIDs {
			if id == ln.Item.ProductID {
				return true
			}
		}
		return false
	case ScopeCategories:
		for _, id := range d.CategoryIDs {
			if id == ln.Product.CategoryID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// discountAmount converts a discount definition into dollars over the eligible
// subtotal, capped at that subtotal.
func discountAmount(d Discount, eligible decimal.Decimal) decimal.Decimal {
	if !eligible.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		amount = eligible.Mul(d.Value)
	default:
		amount = d.Value
	}
	if amount.GreaterThan(eligible) {
		amount = eligible
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func sumApplied(applied []AppliedDiscount) decimal.Decimal {
	total := decimal.Zero
	for _, a := range applied {
		total = total.Add(a.Amount)
	}
	return total
}

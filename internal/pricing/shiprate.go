package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CartWeight totals the estimated shipping weight of the priced lines using
// each product's weight per square foot.
func CartWeight(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, ln := range lines {
		perUnit := ln.Product.WeightPerSqFt.Mul(ln.AreaSqFt)
		total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(ln.Item.Qty))))
	}
	return total
}

// ComputeShipping selects the shipping cost for the destination, cart weight
// and discounted subtotal. A matching free-over rule waives the cost once the
// subtotal reaches its threshold; otherwise the lowest-priority matching
// weight band's flat rate applies. No matching band is a failure, never a
// silent zero, since that would under-charge.
func ComputeShipping(snap *Snapshot, dest Destination, weight, discountedSubtotal decimal.Decimal) (decimal.Decimal, error) {
	matched := make([]ShippingRule, 0, len(snap.ShippingRules))
	for _, r := range snap.ShippingRules {
		if !zoneMatches(r.DestZone, dest.Zone) {
			continue
		}
		if weight.LessThan(r.WeightMin) || (r.WeightMax.IsPositive() && weight.GreaterThan(r.WeightMax)) {
			continue
		}
		matched = append(matched, r)
	}
	if len(matched) == 0 {
		return decimal.Zero, fmt.Errorf("zone %q weight %s: %w", dest.Zone, weight, ErrNoShippingRule)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority < matched[j].Priority })

	for _, r := range matched {
		if r.FreeOverSubtotal != nil && discountedSubtotal.GreaterThanOrEqual(*r.FreeOverSubtotal) {
			return decimal.Zero, nil
		}
	}
	return matched[0].Rate, nil
}

func zoneMatches(ruleZone, destZone string) bool {
	if ruleZone == "" || ruleZone == "*" {
		return true
	}
	return strings.EqualFold(ruleZone, destZone)
}

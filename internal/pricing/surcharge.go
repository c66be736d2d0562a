package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	sqInchesPerSqFt = decimal.NewFromInt(144)
	ten             = decimal.NewFromInt(10)
)

// AreaSqFt converts width x height (inches) into square feet, rounded up to
// the nearest tenth so partial units are never underpriced.
func AreaSqFt(width, height decimal.Decimal) decimal.Decimal {
	raw := width.Mul(height).Div(sqInchesPerSqFt)
	return raw.Mul(ten).Ceil().Div(ten)
}

// AggregateSurcharges totals the option price deltas for one line item. Flat
// rules add a constant; per-square-foot rules multiply rate by area. A product
// with no configured options yields zero, not an error. An option selection
// with no active matching rule is ErrInvalidOption.
func AggregateSurcharges(snap *Snapshot, item LineItem, area decimal.Decimal) (decimal.Decimal, error) {
	rules := snap.Surcharges[item.ProductID]
	total := decimal.Zero
	categories := make([]OptionCategory, 0, len(item.Options))
	for category := range item.Options {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, category := range categories {
		optionID := item.Options[category]
		found := false
		for _, r := range rules {
			if r.Category != category || r.OptionID != optionID {
				continue
			}
			if !r.Active {
				return decimal.Zero, fmt.Errorf("option %s/%s inactive for product %s: %w", category, optionID, item.ProductID, ErrInvalidOption)
			}
			switch r.Kind {
			case SurchargePerSqFt:
				total = total.Add(r.Amount.Mul(area))
			default:
				total = total.Add(r.Amount)
			}
			found = true
			break
		}
		if !found {
			return decimal.Zero, fmt.Errorf("option %s/%s unknown for product %s: %w", category, optionID, item.ProductID, ErrInvalidOption)
		}
	}
	return total, nil
}

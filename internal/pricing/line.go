package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLine composes the matrix lookup and surcharge aggregation into a priced
// line: unit price = base + surcharges, line total = unit price x quantity.
// All intermediates stay at full decimal precision; rounding to cents is the
// assembler's job.
func PriceLine(snap *Snapshot, item LineItem) (PricedLine, error) {
	if item.Qty < 1 {
		return PricedLine{}, fmt.Errorf("product %s qty %d: %w", item.ProductID, item.Qty, ErrInvalidQuantity)
	}
	product, ok := snap.Products[item.ProductID]
	if !ok {
		return PricedLine{}, fmt.Errorf("product %s missing from snapshot: %w", item.ProductID, ErrReferenceDataUnavailable)
	}

	base, err := ResolveBasePrice(snap, item.ProductID, item.Width, item.Height)
	if err != nil {
		if errors.Is(err, ErrOutOfRangeDimension) {
			return PricedLine{}, &DimensionError{
				ProductID: item.ProductID.String(),
				Detail:    dimensionDetail(product, item.Width, item.Height),
			}
		}
		return PricedLine{}, err
	}

	area := AreaSqFt(item.Width, item.Height)
	surcharge, err := AggregateSurcharges(snap, item, area)
	if err != nil {
		return PricedLine{}, err
	}

	unit := base.Add(surcharge)
	return PricedLine{
		Item:      item,
		Product:   product,
		UnitPrice: unit,
		Surcharge: surcharge,
		AreaSqFt:  area,
		Total:     unit.Mul(decimal.NewFromInt(int64(item.Qty))),
	}, nil
}

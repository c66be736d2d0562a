package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolveBasePrice looks up the matrix entry whose width/height ranges contain
// the requested dimensions and returns its base unit price.
//
// Exactly one entry must match. Zero matches surface ErrOutOfRangeDimension to
// the caller; more than one is ErrAmbiguousMatrix, a data-integrity failure
// that is reported instead of resolved by picking an arbitrary row.
func ResolveBasePrice(snap *Snapshot, productID uuid.UUID, width, height decimal.Decimal) (decimal.Decimal, error) {
	entries := snap.Matrices[productID]
	if len(entries) == 0 {
		return decimal.Zero, fmt.Errorf("product %s has no pricing matrix: %w", productID, ErrReferenceDataUnavailable)
	}

	var (
		price   decimal.Decimal
		matched int
	)
	for _, e := range entries {
		if containsDimension(e, width, height) {
			price = e.BasePrice
			matched++
		}
	}
	switch matched {
	case 0:
		return decimal.Zero, fmt.Errorf("%s at %s x %s in: %w", productID, width, height, ErrOutOfRangeDimension)
	case 1:
		return price, nil
	default:
		return decimal.Zero, fmt.Errorf("product %s: %d entries contain %s x %s in: %w", productID, matched, width, height, ErrAmbiguousMatrix)
	}
}

func containsDimension(e MatrixEntry, width, height decimal.Decimal) bool {
	return width.GreaterThanOrEqual(e.WidthMin) && width.LessThanOrEqual(e.WidthMax) &&
		height.GreaterThanOrEqual(e.HeightMin) && height.LessThanOrEqual(e.HeightMax)
}

// dimensionDetail renders the product's configured bounds for error payloads.
func dimensionDetail(p Product, width, height decimal.Decimal) DimensionDetail {
	return DimensionDetail{
		Width:     width.String(),
		Height:    height.String(),
		WidthMin:  p.WidthMinInches.String(),
		WidthMax:  p.WidthMaxInches.String(),
		HeightMin: p.HeightMin.String(),
		HeightMax: p.HeightMax.String(),
	}
}

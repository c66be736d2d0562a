package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResolveJurisdiction finds the tax jurisdiction for a destination: exact
// postal-code match first, then the state-level default. No determinable rate
// is a hard failure; checkout never proceeds on a silent zero.
func ResolveJurisdiction(snap *Snapshot, dest Destination) (Jurisdiction, error) {
	postal := strings.TrimSpace(dest.PostalCode)
	if j, ok := snap.Jurisdictions[postal]; ok {
		return j, nil
	}
	state := strings.ToUpper(strings.TrimSpace(dest.State))
	if j, ok := snap.StateRates[state]; ok {
		return j, nil
	}
	return Jurisdiction{}, fmt.Errorf("postal %q state %q: %w", postal, state, ErrTaxJurisdictionUnresolved)
}

// ComputeTax applies the jurisdiction's combined rate to the post-discount,
// pre-shipping subtotal. Shipping is taxed as well when the jurisdiction says
// so. The result keeps full precision; the assembler rounds.
func ComputeTax(j Jurisdiction, discountedSubtotal, shipping decimal.Decimal) decimal.Decimal {
	rate := j.TotalRate()
	tax := discountedSubtotal.Mul(rate)
	if j.TaxesShipping {
		tax = tax.Add(shipping.Mul(rate))
	}
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

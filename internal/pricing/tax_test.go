package pricing

import (
	"errors"
	"testing"
)

func taxSnapshot() *Snapshot {
	return &Snapshot{
		Jurisdictions: map[string]Jurisdiction{
			"78701": {PostalCode: "78701", State: "TX", StateRate: dec("0.0625"), CityRate: dec("0.01"), SpecialRate: dec("0.0075")},
		},
		StateRates: map[string]Jurisdiction{
			"TX": {State: "TX", StateRate: dec("0.0625")},
		},
	}
}

func TestResolveJurisdictionExactPostal(t *testing.T) {
	j, err := ResolveJurisdiction(taxSnapshot(), Destination{PostalCode: "78701", State: "TX"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.TotalRate().Equal(dec("0.08")) {
		t.Fatalf("expected combined rate 0.08, got %s", j.TotalRate())
	}
}

func TestResolveJurisdictionStateFallback(t *testing.T) {
	j, err := ResolveJurisdiction(taxSnapshot(), Destination{PostalCode: "79901", State: "tx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.TotalRate().Equal(dec("0.0625")) {
		t.Fatalf("expected state rate 0.0625, got %s", j.TotalRate())
	}
}

func TestResolveJurisdictionUnresolved(t *testing.T) {
	_, err := ResolveJurisdiction(taxSnapshot(), Destination{PostalCode: "10001", State: "NY"})
	if !errors.Is(err, ErrTaxJurisdictionUnresolved) {
		t.Fatalf("expected ErrTaxJurisdictionUnresolved, got %v", err)
	}
}

func TestComputeTaxOnDiscountedSubtotal(t *testing.T) {
	j := Jurisdiction{StateRate: dec("0.08")}
	tax := ComputeTax(j, dec("226.80"), dec("15.00"))
	if !tax.Equal(dec("18.144")) {
		t.Fatalf("expected full-precision 18.144, got %s", tax)
	}
}

func TestComputeTaxIncludesShippingWhenFlagged(t *testing.T) {
	j := Jurisdiction{StateRate: dec("0.10"), TaxesShipping: true}
	tax := ComputeTax(j, dec("100.00"), dec("20.00"))
	if !tax.Equal(dec("12.00")) {
		t.Fatalf("expected 12.00, got %s", tax)
	}
}

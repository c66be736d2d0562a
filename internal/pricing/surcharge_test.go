package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAreaSqFtRoundsUpToTenth(t *testing.T) {
	cases := []struct {
		width, height, want string
	}{
		{"36", "48", "12"},   // exactly 12 sq ft
		{"36", "49", "12.3"}, // 12.25 rounds up
		{"13", "13", "1.2"},  // 1.1736... rounds up
		{"12", "12", "1"},    // exactly 1 sq ft
	}
	for _, tc := range cases {
		got := AreaSqFt(dec(tc.width), dec(tc.height))
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("AreaSqFt(%s, %s) = %s, want %s", tc.width, tc.height, got, tc.want)
		}
	}
}

func TestAggregateSurcharges(t *testing.T) {
	productID := uuid.New()
	fabric := uuid.New()
	cordless := uuid.New()
	snap := &Snapshot{Surcharges: map[uuid.UUID][]SurchargeRule{
		productID: {
			{ProductID: productID, Category: OptionMaterial, OptionID: fabric, Kind: SurchargePerSqFt, Amount: dec("0.50"), Active: true},
			{ProductID: productID, Category: OptionControl, OptionID: cordless, Kind: SurchargeFlat, Amount: dec("25.00"), Active: true},
		},
	}}
	item := LineItem{ProductID: productID, Options: map[OptionCategory]uuid.UUID{
		OptionMaterial: fabric,
		OptionControl:  cordless,
	}}

	total, err := AggregateSurcharges(snap, item, dec("12"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.50 * 12 + 25.00
	if !total.Equal(dec("31.00")) {
		t.Fatalf("expected 31.00, got %s", total)
	}
}

func TestAggregateSurchargesNoOptions(t *testing.T) {
	snap := &Snapshot{Surcharges: map[uuid.UUID][]SurchargeRule{}}
	total, err := AggregateSurcharges(snap, LineItem{ProductID: uuid.New()}, dec("10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("expected zero surcharge, got %s", total)
	}
}

func TestAggregateSurchargesUnknownOption(t *testing.T) {
	productID := uuid.New()
	snap := &Snapshot{Surcharges: map[uuid.UUID][]SurchargeRule{productID: {}}}
	item := LineItem{ProductID: productID, Options: map[OptionCategory]uuid.UUID{OptionMount: uuid.New()}}

	_, err := AggregateSurcharges(snap, item, dec("10"))
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestAggregateSurchargesInactiveOption(t *testing.T) {
	productID := uuid.New()
	optionID := uuid.New()
	snap := &Snapshot{Surcharges: map[uuid.UUID][]SurchargeRule{
		productID: {{ProductID: productID, Category: OptionMaterial, OptionID: optionID, Kind: SurchargeFlat, Amount: dec("5"), Active: false}},
	}}
	item := LineItem{ProductID: productID, Options: map[OptionCategory]uuid.UUID{OptionMaterial: optionID}}

	_, err := AggregateSurcharges(snap, item, dec("10"))
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

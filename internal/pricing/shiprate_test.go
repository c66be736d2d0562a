package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func shippingSnapshot() *Snapshot {
	freeOver := dec("300.00")
	return &Snapshot{ShippingRules: []ShippingRule{
		{ID: uuid.New(), DestZone: "*", WeightMin: dec("0"), WeightMax: dec("50"), Rate: dec("15.00"), FreeOverSubtotal: &freeOver, Priority: 10},
		{ID: uuid.New(), DestZone: "*", WeightMin: dec("50.01"), WeightMax: dec("150"), Rate: dec("45.00"), Priority: 10},
		{ID: uuid.New(), DestZone: "AK", WeightMin: dec("0"), WeightMax: dec("150"), Rate: dec("60.00"), Priority: 1},
	}}
}

func TestComputeShippingFlatRate(t *testing.T) {
	cost, err := ComputeShipping(shippingSnapshot(), Destination{Zone: "US-48"}, dec("20"), dec("226.80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cost.Equal(dec("15.00")) {
		t.Fatalf("expected 15.00, got %s", cost)
	}
}

func TestComputeShippingFreeOverThreshold(t *testing.T) {
	cost, err := ComputeShipping(shippingSnapshot(), Destination{Zone: "US-48"}, dec("20"), dec("300.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cost.IsZero() {
		t.Fatalf("expected free shipping, got %s", cost)
	}
}

func TestComputeShippingZonePriority(t *testing.T) {
	cost, err := ComputeShipping(shippingSnapshot(), Destination{Zone: "AK"}, dec("20"), dec("100.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cost.Equal(dec("60.00")) {
		t.Fatalf("expected zone rate 60.00, got %s", cost)
	}
}

func TestComputeShippingNoRuleMatched(t *testing.T) {
	_, err := ComputeShipping(shippingSnapshot(), Destination{Zone: "US-48"}, dec("500"), dec("100.00"))
	if !errors.Is(err, ErrNoShippingRule) {
		t.Fatalf("expected ErrNoShippingRule, got %v", err)
	}
}

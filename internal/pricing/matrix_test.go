package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func matrixSnapshot(productID uuid.UUID, entries ...MatrixEntry) *Snapshot {
	return &Snapshot{Matrices: map[uuid.UUID][]MatrixEntry{productID: entries}}
}

func TestResolveBasePrice(t *testing.T) {
	productID := uuid.New()
	snap := matrixSnapshot(productID,
		MatrixEntry{ProductID: productID, WidthMin: dec("12"), WidthMax: dec("48"), HeightMin: dec("12"), HeightMax: dec("60"), BasePrice: dec("120.00")},
		MatrixEntry{ProductID: productID, WidthMin: dec("48.01"), WidthMax: dec("96"), HeightMin: dec("12"), HeightMax: dec("60"), BasePrice: dec("180.00")},
	)

	price, err := ResolveBasePrice(snap, productID, dec("36"), dec("48"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(dec("120.00")) {
		t.Fatalf("expected 120.00, got %s", price)
	}
}

func TestResolveBasePriceOutOfRange(t *testing.T) {
	productID := uuid.New()
	snap := matrixSnapshot(productID,
		MatrixEntry{ProductID: productID, WidthMin: dec("12"), WidthMax: dec("96"), HeightMin: dec("12"), HeightMax: dec("96"), BasePrice: dec("120.00")},
	)

	_, err := ResolveBasePrice(snap, productID, dec("100"), dec("48"))
	if !errors.Is(err, ErrOutOfRangeDimension) {
		t.Fatalf("expected ErrOutOfRangeDimension, got %v", err)
	}
}

func TestResolveBasePriceAmbiguousMatrix(t *testing.T) {
	productID := uuid.New()
	snap := matrixSnapshot(productID,
		MatrixEntry{ProductID: productID, WidthMin: dec("12"), WidthMax: dec("48"), HeightMin: dec("12"), HeightMax: dec("60"), BasePrice: dec("120.00")},
		MatrixEntry{ProductID: productID, WidthMin: dec("36"), WidthMax: dec("72"), HeightMin: dec("12"), HeightMax: dec("60"), BasePrice: dec("150.00")},
	)

	_, err := ResolveBasePrice(snap, productID, dec("40"), dec("48"))
	if !errors.Is(err, ErrAmbiguousMatrix) {
		t.Fatalf("expected ErrAmbiguousMatrix, got %v", err)
	}
}

func TestResolveBasePriceMissingMatrix(t *testing.T) {
	snap := &Snapshot{Matrices: map[uuid.UUID][]MatrixEntry{}}
	_, err := ResolveBasePrice(snap, uuid.New(), dec("36"), dec("48"))
	if !errors.Is(err, ErrReferenceDataUnavailable) {
		t.Fatalf("expected ErrReferenceDataUnavailable, got %v", err)
	}
}

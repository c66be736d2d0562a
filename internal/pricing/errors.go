package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRangeDimension is returned when the requested width/height falls
	// outside the product's configured dimension domain. Never clamped.
	ErrOutOfRangeDimension = errors.New("requested dimensions out of range")
	// ErrAmbiguousMatrix indicates overlapping pricing matrix rows matched the
	// same dimensions. A data-integrity failure, reported rather than resolved.
	ErrAmbiguousMatrix = errors.New("pricing matrix entries overlap")
	// ErrInvalidOption is returned for unknown or inactive option selections.
	ErrInvalidOption = errors.New("invalid option selection")
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrTaxJurisdictionUnresolved means no rate could be determined for the
	// destination. Checkout cannot proceed without a determinable rate.
	ErrTaxJurisdictionUnresolved = errors.New("tax jurisdiction unresolved")
	// ErrNoShippingRule means no shipping band matched the destination and
	// weight. Never defaults to zero cost.
	ErrNoShippingRule = errors.New("no shipping rule matched")
	// ErrReferenceDataUnavailable wraps failures fetching the reference-data
	// snapshot before computation starts.
	ErrReferenceDataUnavailable = errors.New("reference data unavailable")
	// ErrInvariantViolation is an internal consistency failure. Always a bug:
	// the computation aborts and no partial total is returned.
	ErrInvariantViolation = errors.New("pricing invariant violated")
)

// CouponReason is the machine-readable cause of a coupon rejection.
type CouponReason string

const (
	CouponNotFound          CouponReason = "NOT_FOUND"
	CouponExpired           CouponReason = "EXPIRED"
	CouponUsageLimitReached CouponReason = "USAGE_LIMIT_REACHED"
	CouponMinimumNotMet     CouponReason = "MINIMUM_NOT_MET"
	CouponScopeMismatch     CouponReason = "SCOPE_MISMATCH"
)

// CouponError reports why a submitted coupon code was rejected. It propagates
// to the caller for translation into a user-facing message.
type CouponError struct {
	Code   string
	Reason CouponReason
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
}

// RejectCoupon builds a CouponError for the given code and reason.
func RejectCoupon(code string, reason CouponReason) *CouponError {
	return &CouponError{Code: code, Reason: reason}
}

// AsCouponError unwraps err into a CouponError when possible.
func AsCouponError(err error) (*CouponError, bool) {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// DimensionError attaches the offending dimensions and configured bounds to an
// out-of-range failure. It unwraps to ErrOutOfRangeDimension.
type DimensionError struct {
	ProductID string
	Detail    DimensionDetail
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("product %s: %s x %s in outside configured range", e.ProductID, e.Detail.Width, e.Detail.Height)
}

func (e *DimensionError) Unwrap() error { return ErrOutOfRangeDimension }

// DimensionDetail carries the offending dimensions and configured bounds for
// out-of-range failures so callers can render a precise message.
type DimensionDetail struct {
	Width     string `json:"width"`
	Height    string `json:"height"`
	WidthMin  string `json:"widthMin"`
	WidthMax  string `json:"widthMax"`
	HeightMin string `json:"heightMin"`
	HeightMax string `json:"heightMax"`
}

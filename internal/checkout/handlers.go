package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/shadecraft/backend-blinds/internal/common"
	"github.com/shadecraft/backend-blinds/internal/pricing"
)

type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Quote prices a cart without side effects.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	breakdown, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		writePricingError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

// Confirm turns a priced cart into a durable order.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Confirm(r.Context(), in)
	if err != nil {
		writePricingError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return Input{}, false
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request", validationDetails(err))
			return Input{}, false
		}
	}
	return in, true
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, map[string]string{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
		})
	}
	return fields
}

// writePricingError maps engine failures onto the API error contract. Coupon
// rejections are a structured 422 carrying the machine-readable reason; bad
// cart input is a 400; missing reference data is a 503 the client can retry.
func writePricingError(w http.ResponseWriter, err error) {
	if ce, ok := pricing.AsCouponError(err); ok {
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", ce.Error(), map[string]string{
			"code":   ce.Code,
			"reason": string(ce.Reason),
		})
		return
	}
	var de *pricing.DimensionError
	if errors.As(err, &de) {
		common.JSONError(w, http.StatusUnprocessableEntity, "OUT_OF_RANGE_DIMENSION", de.Error(), de.Detail)
		return
	}
	switch {
	case errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidOption):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, pricing.ErrTaxJurisdictionUnresolved),
		errors.Is(err, pricing.ErrNoShippingRule):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNSERVICEABLE_DESTINATION", err.Error(), nil)
	case errors.Is(err, pricing.ErrReferenceDataUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "REFDATA_UNAVAILABLE", "reference data unavailable", nil)
	case errors.Is(err, pricing.ErrAmbiguousMatrix), errors.Is(err, pricing.ErrInvariantViolation):
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.StatusOr(http.StatusBadRequest), appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected failure", nil)
	}
}

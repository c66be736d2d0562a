package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shadecraft/backend-blinds/internal/common"
)

type Handler struct {
	Store Store
}

// Get returns a stored order with the breakdown captured at confirmation.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, items, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	responseItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		responseItems = append(responseItems, map[string]any{
			"id":           it.ID,
			"productId":    it.ProductID,
			"widthInches":  it.WidthInches,
			"heightInches": it.HeightInches,
			"options":      jsonValue(it.Options),
			"qty":          it.Qty,
			"unitPrice":    it.UnitPrice,
			"lineTotal":    it.LineTotal,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":            ord.ID,
			"status":        ord.Status,
			"currency":      ord.Currency,
			"couponCode":    ord.CouponCode,
			"subtotal":      ord.Subtotal,
			"discountTotal": ord.DiscountTotal,
			"tax":           ord.Tax,
			"shipping":      ord.Shipping,
			"grandTotal":    ord.GrandTotal,
			"destState":     ord.DestState,
			"destPostal":    ord.DestPostal,
			"breakdown":     jsonValue(ord.Breakdown),
			"createdAt":     ord.CreatedAt,
			"items":         responseItems,
		},
	})
}

// Cancel transitions a confirmed order to CANCELED. Redeemed coupon slots are
// intentionally not released; usage counters only move forward.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, _, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed", nil)
		return
	}
	if ord.Status != StatusConfirmed {
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "only confirmed orders can be canceled", nil)
		return
	}
	if err := h.Store.UpdateOrderStatus(r.Context(), ord.ID, StatusCanceled); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": StatusCanceled}})
}

func jsonValue(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return json.RawMessage(clone)
}

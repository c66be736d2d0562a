package refdata

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shadecraft/backend-blinds/internal/common"
)

// AdminHandler exposes cache invalidation hooks for back-office rate and
// matrix updates.
type AdminHandler struct {
	Loader *Loader
}

// InvalidateMatrix drops the cached pricing matrix for a product.
func (h *AdminHandler) InvalidateMatrix(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Loader.InvalidateMatrix(r.Context(), productID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalidate matrix cache", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "invalidated"}})
}

// InvalidateTax drops the cached rate for a postal code or state default.
func (h *AdminHandler) InvalidateTax(w http.ResponseWriter, r *http.Request) {
	postal := strings.TrimSpace(r.URL.Query().Get("postal"))
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if postal == "" && state == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "postal or state is required", nil)
		return
	}
	if postal != "" {
		if err := h.Loader.InvalidateTax(r.Context(), postal); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalidate tax cache", nil)
			return
		}
	}
	if state != "" {
		if err := h.Loader.InvalidateStateRate(r.Context(), state); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invalidate tax cache", nil)
			return
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "invalidated"}})
}

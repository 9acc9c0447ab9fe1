package handler

import (
	"net/http"

	"github.com/kellervogt/restocker/internal/api/respond"
	"github.com/kellervogt/restocker/internal/catalog"
)

// PreviewProduct fetches and normalizes a product by id or storefront URL
// without mutating any state.
func (h *Handler) PreviewProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.resolveProductID(w, r.URL.Query().Get("id"), r.URL.Query().Get("url"))
	if !ok {
		return
	}

	snap, err := h.mon.Preview(r.Context(), productID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, snap)
}

// resolveProductID validates the id/url pair and extracts the product id.
// Writes the error response itself when validation fails.
func (h *Handler) resolveProductID(w http.ResponseWriter, id, rawURL string) (string, bool) {
	if id != "" {
		return id, true
	}
	if rawURL == "" {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION",
			"either id or url must be provided")
		return "", false
	}
	productID, err := catalog.ParseProductURL(rawURL)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION",
			"could not extract a product id from url: "+err.Error())
		return "", false
	}
	return productID, true
}

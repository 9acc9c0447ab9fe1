package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kellervogt/restocker/internal/api/respond"
	"github.com/kellervogt/restocker/internal/watch"
)

type addWatchRequest struct {
	ID    string   `json:"id"`
	URL   string   `json:"url"`
	Any   bool     `json:"any"`
	Sizes []string `json:"sizes"`
}

// AddWatch puts a product under monitoring, either for specific sizes or in
// watch-any mode, and reports the immediate-stock outcome.
func (h *Handler) AddWatch(w http.ResponseWriter, r *http.Request) {
	var req addWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body: "+err.Error())
		return
	}

	productID, ok := h.resolveProductID(w, req.ID, req.URL)
	if !ok {
		return
	}
	if !req.Any && len(req.Sizes) == 0 {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION",
			"either any must be true or sizes must be non-empty")
		return
	}

	result, err := h.mon.Add(r.Context(), productID, req.Any, req.Sizes)
	if err != nil {
		switch {
		case errors.Is(err, watch.ErrAlreadyWatched):
			respond.WriteError(w, http.StatusConflict, "ALREADY_WATCHED", err.Error())
		case errors.Is(err, watch.ErrEmptyProductID), errors.Is(err, watch.ErrNoWatchedSizes):
			respond.WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		default:
			h.writeUpstreamError(w, err)
		}
		return
	}
	respond.WriteJSON(w, http.StatusCreated, result)
}

// ListWatches returns the live state of all watched products.
func (h *Handler) ListWatches(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"watches": h.mon.List(),
		"polling": h.mon.Running(),
	})
}

// RemoveWatch stops monitoring one product.
func (h *Handler) RemoveWatch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.mon.Remove(key) {
		respond.WriteError(w, http.StatusNotFound, "NOT_WATCHED", "product is not being watched")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"removed": key})
}

type updateSizesRequest struct {
	Sizes []string `json:"sizes"`
}

// UpdateWatchSizes replaces the watched-size set. Notified memory and the
// stored availability stay untouched.
func (h *Handler) UpdateWatchSizes(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req updateSizesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body: "+err.Error())
		return
	}

	if err := h.mon.UpdateSizes(key, req.Sizes); err != nil {
		switch {
		case errors.Is(err, watch.ErrNotWatched):
			respond.WriteError(w, http.StatusNotFound, "NOT_WATCHED", err.Error())
		case errors.Is(err, watch.ErrNoWatchedSizes):
			respond.WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		default:
			respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		}
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"key": key, "sizes": req.Sizes})
}

// ResetNotifications clears the notified-size memory, re-arming alerts.
func (h *Handler) ResetNotifications(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.mon.ResetNotifications(key); err != nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_WATCHED", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"reset": key})
}

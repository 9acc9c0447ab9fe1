// Package handler implements the admin API endpoints.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kellervogt/restocker/internal/api/respond"
	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/notify"
	"github.com/kellervogt/restocker/internal/upstream"
	"github.com/kellervogt/restocker/internal/watch"
)

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	mon   *watch.Monitor
	creds *upstream.Credentials
	sink  *notify.Webhook
	log   *slog.Logger
}

func New(mon *watch.Monitor, creds *upstream.Credentials, sink *notify.Webhook, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mon: mon, creds: creds, sink: sink, log: logger}
}

// Health reports process liveness and whether polling is active.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"polling": h.mon.Running(),
	})
}

// writeUpstreamError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	var upErr *upstream.UpstreamError
	var netErr *upstream.NetworkError
	var parseErr *catalog.ParseError

	switch {
	case errors.As(err, &upErr):
		respond.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	case errors.As(err, &netErr):
		respond.WriteError(w, http.StatusBadGateway, "NETWORK_ERROR", err.Error())
	case errors.As(err, &parseErr):
		respond.WriteError(w, http.StatusBadGateway, "PARSE_ERROR", err.Error())
	default:
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

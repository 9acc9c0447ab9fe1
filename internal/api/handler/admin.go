package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kellervogt/restocker/internal/api/respond"
)

// ListHistory returns every product ever added to monitoring.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": h.mon.HistoryList(),
	})
}

// ClearHistory deletes all history records.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.mon.ClearHistory()
	respond.WriteJSON(w, http.StatusOK, map[string]string{"history": "cleared"})
}

type updateCredentialsRequest struct {
	Authorization string `json:"authorization"`
	Cookie        string `json:"cookie"`
	Raw           string `json:"raw"`
}

// UpdateCredentials installs new shop credentials, either as explicit
// authorization/cookie values or as a raw header block. A successful update
// re-arms the credentials-expired alert.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req updateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body: "+err.Error())
		return
	}

	switch {
	case req.Raw != "":
		if err := h.creds.ReplaceFromHeaderBlock(req.Raw); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
	case req.Authorization != "" || req.Cookie != "":
		h.creds.Replace(req.Authorization, req.Cookie)
	default:
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION",
			"provide authorization/cookie values or a raw header block")
		return
	}

	h.mon.ResetAuthAlarm()
	h.log.Info("credentials updated")
	respond.WriteJSON(w, http.StatusOK, map[string]string{"credentials": "updated"})
}

type updateWebhookRequest struct {
	URL string `json:"url"`
}

// UpdateWebhook replaces the notification channel target.
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req updateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body: "+err.Error())
		return
	}
	if req.URL == "" {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION", "url must not be empty")
		return
	}

	h.sink.SetTarget(req.URL)
	h.log.Info("webhook target updated")
	respond.WriteJSON(w, http.StatusOK, map[string]string{"webhook": "updated"})
}

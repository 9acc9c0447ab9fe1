package watch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/kellervogt/restocker/internal/notify"
)

// authSignals are the substrings that mark a per-product failure as a likely
// credential expiry.
var authSignals = []string{"unauthorized", "401", "403", "token", "auth", "expired"}

// authAlarm fires a single "credentials expired" alert across repeated
// authorization failures. A credential update resets the suppression.
type authAlarm struct {
	mu       sync.Mutex
	fired    bool
	notifier notify.Notifier
	log      *slog.Logger
}

func newAuthAlarm(notifier notify.Notifier, logger *slog.Logger) *authAlarm {
	return &authAlarm{notifier: notifier, log: logger}
}

// Observe inspects a per-product error and trips the alarm on the first
// auth-looking failure.
func (a *authAlarm) Observe(ctx context.Context, err error) {
	if err == nil || !looksLikeAuthFailure(err.Error()) {
		return
	}

	a.mu.Lock()
	if a.fired {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.mu.Unlock()

	a.log.Warn("shop credentials appear expired", "error", err)
	a.notifier.Send(ctx, notify.Alert{
		Title:    "Shop credentials expired",
		Severity: notify.SeverityWarning,
		Fields: []notify.Field{
			{Name: "Error", Value: err.Error()},
			{Name: "Action", Value: "Update credentials via the admin API to resume monitoring."},
		},
	})
}

// Reset clears the suppression so the next auth failure alerts again.
func (a *authAlarm) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fired = false
}

func looksLikeAuthFailure(msg string) bool {
	msg = strings.ToLower(msg)
	for _, signal := range authSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}

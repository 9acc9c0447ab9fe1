// Package notify delivers structured alerts to an external webhook channel.
// Delivery is best-effort: failures are logged and swallowed, never surfaced
// to the watcher.
package notify

import "context"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Alert is one outbound notification.
type Alert struct {
	Title    string
	Severity Severity
	Fields   []Field
}

// Notifier is the delivery boundary the watcher depends on.
type Notifier interface {
	Send(ctx context.Context, alert Alert)
}

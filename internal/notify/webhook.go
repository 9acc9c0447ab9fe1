package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

var severityColors = map[Severity]int{
	SeverityInfo:    0x3498db,
	SeveritySuccess: 0x2ecc71,
	SeverityWarning: 0xe67e22,
}

// Webhook posts Discord-compatible embeds. The target URL is mutable at
// runtime through the admin surface.
type Webhook struct {
	mu   sync.RWMutex
	url  string
	http tls_client.HttpClient
	log  *slog.Logger
}

func NewWebhook(url string, logger *slog.Logger) (*Webhook, error) {
	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(),
		tls_client.WithTimeoutSeconds(15),
		tls_client.WithClientProfile(profiles.Chrome_120),
	)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{url: url, http: client, log: logger}, nil
}

// SetTarget replaces the webhook URL. An empty URL disables delivery.
func (w *Webhook) SetTarget(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
}

func (w *Webhook) target() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.url
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields,omitempty"`
	Timestamp string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Send delivers one alert. Errors are logged, never returned.
func (w *Webhook) Send(ctx context.Context, alert Alert) {
	url := w.target()
	if url == "" {
		w.log.Debug("no webhook target configured, dropping alert", "title", alert.Title)
		return
	}

	e := embed{
		Title:     alert.Title,
		Color:     severityColors[alert.Severity],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range alert.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		w.log.Error("marshaling alert failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		w.log.Error("building webhook request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		w.log.Warn("webhook delivery failed", "title", alert.Title, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		w.log.Warn("webhook rejected alert", "title", alert.Title, "status", resp.StatusCode)
	}
}

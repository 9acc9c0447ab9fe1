package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/config"
	"github.com/kellervogt/restocker/internal/notify"
	"github.com/kellervogt/restocker/internal/upstream"
	"github.com/kellervogt/restocker/internal/watch"
)

// stubSource serves one fixed snapshot per product id.
type stubSource struct {
	snaps map[string]*catalog.Snapshot
}

func (s stubSource) Fetch(ctx context.Context, productID string) (*catalog.Snapshot, error) {
	snap, ok := s.snaps[productID]
	if !ok {
		return nil, &upstream.UpstreamError{StatusCode: 404, Body: "not found"}
	}
	return snap, nil
}

type stubReserver struct{}

func (stubReserver) Reserve(ctx context.Context, productID, variantID string) (watch.ReserveResult, error) {
	return watch.ReserveResult{Success: true, Message: "added to cart"}, nil
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, alert notify.Alert) {}

func testSnapshot(id string, sizes ...string) *catalog.Snapshot {
	snap := &catalog.Snapshot{
		Product:      catalog.Product{ID: id, Title: "Test Product", InStock: len(sizes) > 0},
		Sizes:        catalog.SizeMapping{},
		Availability: catalog.Availability{},
	}
	for _, s := range sizes {
		snap.Sizes[s] = catalog.SizeRef{Label: s, VariantID: "v" + s}
		snap.Availability[s] = catalog.SizeInfo{InStock: true, Quantity: 1}
		snap.SizeOrder = append(snap.SizeOrder, s)
	}
	return snap
}

func newTestRouter(t *testing.T, snaps map[string]*catalog.Snapshot) http.Handler {
	t.Helper()

	mon := watch.NewMonitor(watch.Options{
		Source:   stubSource{snaps: snaps},
		Reserver: stubReserver{},
		Notifier: noopNotifier{},
		Interval: time.Hour,
		FetchRPS: 500,
	})
	t.Cleanup(mon.Close)

	creds := upstream.NewCredentials("", "")
	sink, err := notify.NewWebhook("", nil)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}

	cfg := &config.Config{
		CORSAllowOrigins: []string{"http://localhost:3000"},
		RateLimitEnabled: false,
	}
	return NewRouter(mon, creds, sink, cfg, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddListRemoveWatch(t *testing.T) {
	router := newTestRouter(t, map[string]*catalog.Snapshot{
		"3158263": testSnapshot("3158263", "176"),
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/watches",
		`{"url": "https://host/catalog/product/view/id/3158263", "sizes": ["176"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var added watch.AddResult
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode add result: %v", err)
	}
	if added.Key != "3158263" {
		t.Errorf("key = %q", added.Key)
	}
	if len(added.Outcome.Reserved) != 1 {
		t.Errorf("expected immediate reservation, got %+v", added.Outcome)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/watches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Watches []watch.EntryView `json:"watches"`
		Polling bool              `json:"polling"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Watches) != 1 || !listed.Polling {
		t.Errorf("list = %+v", listed)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/watches/3158263", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/watches/3158263", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}

func TestAddWatchValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"no id or url", `{"sizes": ["176"]}`},
		{"bad url", `{"url": "https://host/no-id-here", "sizes": ["176"]}`},
		{"no sizes and not any", `{"id": "42"}`},
		{"broken json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/watches", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAddWatchUpstreamFailure(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/watches", `{"id": "999", "any": true}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestPreviewProduct(t *testing.T) {
	router := newTestRouter(t, map[string]*catalog.Snapshot{
		"42": testSnapshot("42", "176", "177"),
	})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/preview?id=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	var snap catalog.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if len(snap.Sizes) != 2 {
		t.Errorf("sizes = %v", snap.Sizes)
	}

	// Preview must not start monitoring.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/watches", "")
	var listed struct {
		Watches []watch.EntryView `json:"watches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Watches) != 0 {
		t.Errorf("preview must not mutate state, got %+v", listed.Watches)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/preview", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id/url status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	router := newTestRouter(t, map[string]*catalog.Snapshot{
		"42": testSnapshot("42"),
	})

	doJSON(t, router, http.MethodPost, "/api/v1/watches", `{"id": "42", "any": true}`)
	doJSON(t, router, http.MethodDelete, "/api/v1/watches/42", "")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/history", "")
	var hist struct {
		History []watch.HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 1 {
		t.Fatalf("history must survive removal, got %+v", hist.History)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear history status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/history", "")
	hist.History = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 0 {
		t.Errorf("history after clear = %+v", hist.History)
	}
}

func TestUpdateCredentialsAndWebhook(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/credentials",
		`{"raw": "Authorization: Bearer abc\nCookie: session=x"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("credentials raw update status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/credentials", `{"raw": "Accept: */*"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("raw block without credentials status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/credentials", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty credentials status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/webhook",
		fmt.Sprintf(`{"url": %q}`, "https://discord.example/api/webhooks/1/x"))
	if rec.Code != http.StatusOK {
		t.Errorf("webhook update status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/webhook", `{"url": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty webhook url status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

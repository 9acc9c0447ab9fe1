package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/notify"
)

// Mock Source: serves a scripted sequence of snapshots per product.
type mockSource struct {
	mu    sync.Mutex
	snaps map[string][]*catalog.Snapshot
	errs  map[string]error
	calls int
}

func newMockSource() *mockSource {
	return &mockSource{snaps: map[string][]*catalog.Snapshot{}, errs: map[string]error{}}
}

func (m *mockSource) push(productID string, snaps ...*catalog.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[productID] = append(m.snaps[productID], snaps...)
}

func (m *mockSource) Fetch(ctx context.Context, productID string) (*catalog.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.errs[productID]; err != nil {
		return nil, err
	}
	queue := m.snaps[productID]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no snapshot scripted for %s", productID)
	}
	snap := queue[0]
	if len(queue) > 1 {
		m.snaps[productID] = queue[1:]
	}
	return snap, nil
}

// Mock Reserver: counts attempts, optionally failing them.
type mockReserver struct {
	mu       sync.Mutex
	attempts []string // variant ids in order
	fail     bool
	err      error
}

func (m *mockReserver) Reserve(ctx context.Context, productID, variantID string) (ReserveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, variantID)
	if m.err != nil {
		return ReserveResult{}, m.err
	}
	if m.fail {
		return ReserveResult{Success: false, Message: "sold out"}, nil
	}
	return ReserveResult{Success: true, Message: "added to cart"}, nil
}

func (m *mockReserver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

// Mock Notifier: records alerts.
type mockNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (m *mockNotifier) Send(ctx context.Context, alert notify.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// snapshot builds a test snapshot where the given size ids are in stock.
func snapshot(sizes ...string) *catalog.Snapshot {
	snap := &catalog.Snapshot{
		Product: catalog.Product{
			ID:      "p1",
			Title:   "Test Sneaker",
			Brand:   "Acme",
			Price:   99.90,
			InStock: len(sizes) > 0,
		},
		Sizes:        catalog.SizeMapping{},
		Availability: catalog.Availability{},
	}
	for _, s := range sizes {
		snap.Sizes[s] = catalog.SizeRef{Label: "EU " + s, VariantID: "v" + s}
		snap.Availability[s] = catalog.SizeInfo{InStock: true, Quantity: 1}
		snap.SizeOrder = append(snap.SizeOrder, s)
	}
	return snap
}

func sizeEntry(sizes ...string) *Entry {
	return newEntry("p1", false, sizes)
}

func TestEvaluate_RisingEdgeReservesAndNotifies(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	out := eng.Evaluate(context.Background(), entry, snapshot("42"))

	if len(out.Reserved) != 1 || out.Reserved[0] != "42" {
		t.Fatalf("expected size 42 reserved, got %v", out.Reserved)
	}
	if reserver.count() != 1 {
		t.Errorf("expected 1 reservation attempt, got %d", reserver.count())
	}
	if reserver.attempts[0] != "v42" {
		t.Errorf("expected variant v42, got %s", reserver.attempts[0])
	}
	if notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.count())
	}
	if !entry.Notified["42"] {
		t.Error("size 42 should be recorded as notified")
	}
}

func TestEvaluate_Idempotence(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	eng.Evaluate(context.Background(), entry, snapshot("42"))
	eng.Evaluate(context.Background(), entry, snapshot("42"))

	if reserver.count() != 1 {
		t.Errorf("second identical sweep must not reserve again, got %d attempts", reserver.count())
	}
	if notifier.count() != 1 {
		t.Errorf("second identical sweep must not notify again, got %d alerts", notifier.count())
	}
}

func TestEvaluate_EdgeSequenceCountsRisingEdges(t *testing.T) {
	// out -> in -> in -> out -> in yields exactly 2 reservation attempts.
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	sequence := []*catalog.Snapshot{
		snapshot(),     // out
		snapshot("42"), // in  (edge 1)
		snapshot("42"), // in
		snapshot(),     // out (re-arm)
		snapshot("42"), // in  (edge 2)
	}
	for _, snap := range sequence {
		eng.Evaluate(context.Background(), entry, snap)
	}

	if reserver.count() != 2 {
		t.Errorf("expected exactly 2 reservation attempts, got %d", reserver.count())
	}
	if notifier.count() != 2 {
		t.Errorf("expected exactly 2 notifications, got %d", notifier.count())
	}
}

func TestEvaluate_ReArmOnOutOfStock(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	eng.Evaluate(context.Background(), entry, snapshot("42"))
	if !entry.Notified["42"] {
		t.Fatal("size should be notified after first edge")
	}

	eng.Evaluate(context.Background(), entry, snapshot())
	if entry.Notified["42"] {
		t.Error("out-of-stock observation must re-arm the size")
	}

	eng.Evaluate(context.Background(), entry, snapshot("42"))
	if notifier.count() != 2 {
		t.Errorf("re-stock after re-arm must notify again, got %d alerts", notifier.count())
	}
}

func TestEvaluate_ReservationFailureStaysEligible(t *testing.T) {
	reserver := &mockReserver{fail: true}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	out := eng.Evaluate(context.Background(), entry, snapshot("42"))

	if len(out.Failed) != 1 {
		t.Fatalf("expected 1 failed reservation, got %v", out.Failed)
	}
	if notifier.count() != 0 {
		t.Error("failed reservation must not notify")
	}
	if entry.Notified["42"] {
		t.Error("failed reservation must not record the size as notified")
	}
	if entry.PrevAvail["42"].InStock {
		t.Error("failed reservation must keep the stored edge open for retry")
	}

	// Next sweep with the same availability retries.
	eng.Evaluate(context.Background(), entry, snapshot("42"))
	if reserver.count() != 2 {
		t.Errorf("expected a retry on the next sweep, got %d attempts", reserver.count())
	}
}

func TestEvaluate_ReservationErrorStaysEligible(t *testing.T) {
	reserver := &mockReserver{err: errors.New("connection reset")}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	eng.Evaluate(context.Background(), entry, snapshot("42"))
	if notifier.count() != 0 {
		t.Error("reservation error must not notify")
	}

	reserver.err = nil
	eng.Evaluate(context.Background(), entry, snapshot("42"))
	if notifier.count() != 1 {
		t.Errorf("expected notification once reservation succeeds, got %d", notifier.count())
	}
}

func TestEvaluate_UnwatchedSizesIgnored(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	eng.Evaluate(context.Background(), entry, snapshot("41", "43"))

	if reserver.count() != 0 {
		t.Errorf("unwatched sizes must not reserve, got %d attempts", reserver.count())
	}
}

func TestEvaluate_NewlyWatchedInStockSizeDoesNotAlert(t *testing.T) {
	// A size added to the watch set while already in stock stays silent
	// until it toggles out and back in.
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	eng.Evaluate(context.Background(), entry, snapshot("42", "43"))
	if reserver.count() != 1 {
		t.Fatalf("expected only the watched size reserved, got %d", reserver.count())
	}

	// 43 joins the watch set; its stored availability already says in stock.
	entry.Watched["43"] = true
	eng.Evaluate(context.Background(), entry, snapshot("42", "43"))
	if reserver.count() != 1 {
		t.Errorf("already-stocked newly watched size must not alert, got %d attempts", reserver.count())
	}

	eng.Evaluate(context.Background(), entry, snapshot("42"))
	eng.Evaluate(context.Background(), entry, snapshot("42", "43"))
	if reserver.count() != 2 {
		t.Errorf("out-and-back-in toggle must alert for the new size, got %d attempts", reserver.count())
	}
}

func TestEvaluate_WatchAnyReservesExactlyOneSize(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := newEntry("p1", true, nil)

	out := eng.Evaluate(context.Background(), entry, snapshot("40", "41", "42", "43", "44"))

	if reserver.count() != 1 {
		t.Errorf("restock edge must reserve exactly one size, got %d attempts", reserver.count())
	}
	if len(out.Reserved) != 1 || out.Reserved[0] != "40" {
		t.Errorf("expected first size in upstream order reserved, got %v", out.Reserved)
	}
	if notifier.count() != 1 {
		t.Errorf("expected exactly one notification, got %d", notifier.count())
	}
	if !entry.HadAnySize {
		t.Error("HadAnySize must be set after a restock edge")
	}
}

func TestEvaluate_WatchAnyTriesNextSizeOnFailure(t *testing.T) {
	reserver := &mockReserver{fail: true}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := newEntry("p1", true, nil)

	eng.Evaluate(context.Background(), entry, snapshot("40", "41"))

	if reserver.count() != 2 {
		t.Errorf("expected fallthrough to the next size, got %d attempts", reserver.count())
	}
	if notifier.count() != 0 {
		t.Error("no notification without a successful reservation")
	}
	if !entry.HadAnySize {
		t.Error("edge is consumed even when all reservations fail")
	}
}

func TestEvaluate_WatchAnyEdgeFiresOncePerRestock(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := newEntry("p1", true, nil)

	eng.Evaluate(context.Background(), entry, snapshot("40"))
	eng.Evaluate(context.Background(), entry, snapshot("40", "41"))
	if reserver.count() != 1 {
		t.Errorf("no new edge while stock persists, got %d attempts", reserver.count())
	}

	eng.Evaluate(context.Background(), entry, snapshot())
	if entry.HadAnySize {
		t.Error("out-of-stock edge must clear HadAnySize")
	}
	if len(entry.Notified) != 0 {
		t.Error("out-of-stock edge must clear notified memory")
	}

	eng.Evaluate(context.Background(), entry, snapshot("41"))
	if reserver.count() != 2 {
		t.Errorf("new restock edge must reserve again, got %d attempts", reserver.count())
	}
}

func TestEvaluate_StoresObservationAfterSweep(t *testing.T) {
	reserver := &mockReserver{}
	notifier := &mockNotifier{}
	eng := NewEngine(reserver, notifier, nil)
	entry := sizeEntry("42")

	snap := snapshot("41", "42")
	eng.Evaluate(context.Background(), entry, snap)

	if len(entry.PrevAvail) != len(snap.Availability) {
		t.Errorf("stored availability must match the observation, got %v", entry.PrevAvail)
	}
	for id, info := range snap.Availability {
		if entry.PrevAvail[id] != info {
			t.Errorf("stored availability for %s = %+v, want %+v", id, entry.PrevAvail[id], info)
		}
	}
	if entry.LastProduct.Title != snap.Product.Title {
		t.Error("descriptor must be replaced wholesale")
	}
}

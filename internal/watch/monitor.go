package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/notify"
	"github.com/kellervogt/restocker/internal/ratelimit"
)

var (
	ErrEmptyProductID = errors.New("product id must not be empty")
	ErrNoWatchedSizes = errors.New("watched size set must not be empty")
)

// Options wires a Monitor.
type Options struct {
	Source   Source
	Reserver Reserver
	Notifier notify.Notifier
	Interval time.Duration
	FetchRPS float64
	Logger   *slog.Logger
}

// Monitor bundles registry, engine, scheduler, and history behind the
// operations the admin surface consumes. The scheduler runs exactly when the
// registry is non-empty.
type Monitor struct {
	source   Source
	engine   *Engine
	registry *Registry
	history  *History
	sched    *Scheduler
	jar      *ratelimit.TokenJar
	alarm    *authAlarm
	log      *slog.Logger

	// mu pairs registry membership changes with the matching scheduler
	// start/stop. Admin handlers run on concurrent server goroutines; the
	// registry lock alone does not cover the scheduler call, so without
	// this pairing an interleaved add and remove-last can leave a
	// non-empty registry with a stopped scheduler.
	mu sync.Mutex
}

func NewMonitor(opts Options) *Monitor {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	rps := opts.FetchRPS
	if rps <= 0 {
		rps = 2
	}

	m := &Monitor{
		source:   opts.Source,
		engine:   NewEngine(opts.Reserver, opts.Notifier, log),
		registry: NewRegistry(),
		history:  NewHistory(),
		jar:      ratelimit.NewTokenJar(rps, int(rps*2)),
		alarm:    newAuthAlarm(opts.Notifier, log),
		log:      log,
	}
	m.sched = NewScheduler(interval, m.Sweep, log)
	return m
}

// Close stops the scheduler and the fetch pacer. In-flight sweeps complete.
func (m *Monitor) Close() {
	m.sched.Stop()
	m.jar.Stop()
}

// Running reports whether polling is active.
func (m *Monitor) Running() bool {
	return m.sched.Running()
}

// Preview fetches and normalizes a product without mutating any state.
func (m *Monitor) Preview(ctx context.Context, productID string) (*catalog.Snapshot, error) {
	if productID == "" {
		return nil, ErrEmptyProductID
	}
	return m.source.Fetch(ctx, productID)
}

// AddResult reports what the immediate-stock check observed and did.
type AddResult struct {
	Key     string          `json:"key"`
	Product catalog.Product `json:"product"`
	Outcome Outcome         `json:"outcome"`
}

// Add claims a registry slot for the product, then fetches the current
// snapshot and evaluates it against a zero state (so sizes already in stock
// reserve and alert immediately). The claim comes first: a rejected duplicate
// must never reach the shop, reserve, or notify. A fetch or parse failure
// rolls the claim back, leaving the registry as it was. The first entry
// starts the scheduler.
func (m *Monitor) Add(ctx context.Context, productID string, watchAll bool, sizes []string) (AddResult, error) {
	if productID == "" {
		return AddResult{}, ErrEmptyProductID
	}
	if !watchAll && len(sizes) == 0 {
		return AddResult{}, ErrNoWatchedSizes
	}

	entry := newEntry(productID, watchAll, sizes)

	m.mu.Lock()
	if err := m.registry.Insert(entry); err != nil {
		m.mu.Unlock()
		return AddResult{}, err
	}
	m.sched.Start()
	m.mu.Unlock()

	snap, err := m.source.Fetch(ctx, productID)
	if err != nil {
		m.mu.Lock()
		if removed, empty := m.registry.Delete(productID); removed && empty {
			m.sched.Stop()
		}
		m.mu.Unlock()
		return AddResult{}, err
	}

	outcome, ok := m.registry.Evaluate(productID, func(e *Entry) Outcome {
		return m.engine.Evaluate(ctx, e, snap)
	})
	if !ok {
		// Removed while the fetch was in flight.
		return AddResult{Key: productID, Product: snap.Product}, nil
	}
	m.history.Record(productID, snap.Product.Title)
	m.observeReserveErrors(ctx, outcome)

	m.log.Info("watching product",
		"product", productID, "mode", entryMode(watchAll), "in_stock", len(outcome.InStock))

	return AddResult{Key: productID, Product: snap.Product, Outcome: outcome}, nil
}

// Remove drops a watch entry. Removing the last entry stops the scheduler.
// Removing an absent key is a no-op reported as not found.
func (m *Monitor) Remove(key string) bool {
	m.mu.Lock()
	removed, empty := m.registry.Delete(key)
	if removed && empty {
		m.sched.Stop()
	}
	m.mu.Unlock()
	if removed {
		m.log.Info("stopped watching product", "product", key)
	}
	return removed
}

// UpdateSizes replaces a watch entry's size set.
func (m *Monitor) UpdateSizes(key string, sizes []string) error {
	if len(sizes) == 0 {
		return ErrNoWatchedSizes
	}
	return m.registry.UpdateSizes(key, sizes)
}

// ResetNotifications re-arms all alerts for one entry.
func (m *Monitor) ResetNotifications(key string) error {
	return m.registry.ResetNotifications(key)
}

// List returns the live state of all watched products.
func (m *Monitor) List() []EntryView {
	return m.registry.Views()
}

// HistoryList returns all history records.
func (m *Monitor) HistoryList() []HistoryEntry {
	return m.history.List()
}

// ClearHistory deletes all history records.
func (m *Monitor) ClearHistory() {
	m.history.Clear()
}

// ResetAuthAlarm re-arms the credentials-expired alert. Called after a
// credential update.
func (m *Monitor) ResetAuthAlarm() {
	m.alarm.Reset()
}

// Sweep processes every watched product once, strictly sequentially. Errors
// on one product never abort the rest of the sweep.
func (m *Monitor) Sweep(ctx context.Context) {
	keys := m.registry.Keys()
	if len(keys) == 0 {
		return
	}
	start := time.Now()

	for _, key := range keys {
		m.jar.WaitForToken()

		snap, err := m.source.Fetch(ctx, key)
		if err != nil {
			m.log.Warn("sweep fetch failed", "product", key, "error", err)
			m.alarm.Observe(ctx, err)
			continue
		}

		outcome, ok := m.registry.Evaluate(key, func(e *Entry) Outcome {
			return m.engine.Evaluate(ctx, e, snap)
		})
		if !ok {
			// Removed mid-sweep.
			continue
		}
		m.history.Touch(key)
		m.observeReserveErrors(ctx, outcome)

		if len(outcome.Reserved) > 0 || len(outcome.Failed) > 0 {
			m.log.Info("sweep outcome", "product", key,
				"reserved", outcome.Reserved, "failed", outcome.Failed)
		}
	}

	m.log.Debug("sweep finished", "products", len(keys), "duration", time.Since(start))
}

// observeReserveErrors runs reservation transport errors through the
// credentials heuristic. Expired credentials sometimes surface only on the
// cart endpoint while product fetches keep succeeding.
func (m *Monitor) observeReserveErrors(ctx context.Context, out Outcome) {
	for _, err := range out.reserveErrs {
		m.alarm.Observe(ctx, err)
	}
}

func entryMode(watchAll bool) string {
	if watchAll {
		return "any"
	}
	return "sizes"
}

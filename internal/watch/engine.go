package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/notify"
)

// Source fetches and normalizes one product snapshot.
type Source interface {
	Fetch(ctx context.Context, productID string) (*catalog.Snapshot, error)
}

// ReserveResult mirrors the upstream cart-add answer. Success false is a
// normal outcome: the shop is authoritative and may reject the claim.
type ReserveResult struct {
	Success bool
	Message string
}

// Reserver claims inventory for a size variant.
type Reserver interface {
	Reserve(ctx context.Context, productID, variantID string) (ReserveResult, error)
}

// Outcome summarizes one evaluation of an entry against a fresh snapshot.
type Outcome struct {
	InStock  []string `json:"in_stock"`
	Reserved []string `json:"reserved"`
	Notified []string `json:"notified"`
	Failed   []string `json:"failed"`

	// reserveErrs collects transport errors from reservation attempts so
	// the caller can run them through the credentials heuristic. Not part
	// of the wire shape.
	reserveErrs []error
}

// Engine compares a fresh snapshot against an entry's stored state, decides
// whether an availability edge fired, and drives reservation + notification.
// A notification without a successful reservation is useless, so the engine
// only alerts once inventory is provably claimed.
type Engine struct {
	reserver Reserver
	notifier notify.Notifier
	log      *slog.Logger
}

func NewEngine(reserver Reserver, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reserver: reserver, notifier: notifier, log: logger}
}

// Evaluate runs the transition rules for one entry and writes the snapshot
// back as the new stored state. The caller guarantees no concurrent
// evaluation of the same entry.
func (eng *Engine) Evaluate(ctx context.Context, entry *Entry, snap *catalog.Snapshot) Outcome {
	out := Outcome{InStock: snap.InStockSizes()}
	failed := map[string]bool{}

	if entry.WatchAll {
		eng.evaluateAny(ctx, entry, snap, &out)
	} else {
		eng.evaluateSizes(ctx, entry, snap, &out, failed)
	}

	// Store the observation. Sizes whose reservation attempt failed keep
	// their previous stored value so the rising edge persists and the next
	// sweep retries.
	next := make(catalog.Availability, len(snap.Availability))
	for id, info := range snap.Availability {
		next[id] = info
	}
	for id := range failed {
		if prev, ok := entry.PrevAvail[id]; ok {
			next[id] = prev
		} else {
			delete(next, id)
		}
	}
	entry.PrevAvail = next
	entry.LastProduct = snap.Product
	entry.LastSizes = snap.Sizes

	return out
}

// evaluateAny handles watch-all mode: a restock edge (zero to nonzero
// available sizes) reserves and notifies for exactly one size; the reverse
// edge re-arms.
func (eng *Engine) evaluateAny(ctx context.Context, entry *Entry, snap *catalog.Snapshot, out *Outcome) {
	hasAny := len(out.InStock) > 0

	switch {
	case !entry.HadAnySize && hasAny:
		eng.log.Info("restock detected", "product", entry.ProductID, "sizes", len(out.InStock))
		for _, size := range out.InStock {
			res, ok := eng.reserve(ctx, entry, snap, size, out)
			if !ok {
				out.Failed = append(out.Failed, size)
				continue
			}
			out.Reserved = append(out.Reserved, size)
			eng.sendAlert(ctx, entry, snap, size, res.Message)
			entry.Notified[size] = true
			out.Notified = append(out.Notified, size)
			break
		}
		entry.HadAnySize = true

	case entry.HadAnySize && !hasAny:
		eng.log.Info("product fully out of stock again", "product", entry.ProductID)
		entry.HadAnySize = false
		entry.Notified = map[string]bool{}
	}
}

// evaluateSizes handles specific-size mode: each watched size is evaluated
// independently for rising edges and re-arming.
func (eng *Engine) evaluateSizes(ctx context.Context, entry *Entry, snap *catalog.Snapshot, out *Outcome, failed map[string]bool) {
	for _, size := range entry.watchedSizes() {
		wasInStock := entry.PrevAvail[size].InStock
		nowInStock := snap.Availability[size].InStock

		switch {
		case nowInStock && !wasInStock && !entry.Notified[size]:
			res, ok := eng.reserve(ctx, entry, snap, size, out)
			if !ok {
				failed[size] = true
				out.Failed = append(out.Failed, size)
				continue
			}
			out.Reserved = append(out.Reserved, size)
			eng.sendAlert(ctx, entry, snap, size, res.Message)
			entry.Notified[size] = true
			out.Notified = append(out.Notified, size)

		case entry.Notified[size] && !nowInStock:
			// Out-of-stock observation re-arms a previously notified size.
			delete(entry.Notified, size)
		}
	}
}

func (eng *Engine) reserve(ctx context.Context, entry *Entry, snap *catalog.Snapshot, size string, out *Outcome) (ReserveResult, bool) {
	ref, ok := snap.Sizes[size]
	if !ok || ref.VariantID == "" {
		eng.log.Warn("no variant id for size, cannot reserve",
			"product", entry.ProductID, "size", size)
		return ReserveResult{}, false
	}

	res, err := eng.reserver.Reserve(ctx, entry.ProductID, ref.VariantID)
	if err != nil {
		eng.log.Warn("reservation failed",
			"product", entry.ProductID, "size", size, "error", err)
		out.reserveErrs = append(out.reserveErrs, err)
		return ReserveResult{}, false
	}
	if !res.Success {
		eng.log.Info("reservation rejected by shop",
			"product", entry.ProductID, "size", size, "message", res.Message)
		return res, false
	}

	eng.log.Info("reserved", "product", entry.ProductID, "size", size)
	return res, true
}

func (eng *Engine) sendAlert(ctx context.Context, entry *Entry, snap *catalog.Snapshot, size, message string) {
	label := size
	if ref, ok := snap.Sizes[size]; ok && ref.Label != "" {
		label = ref.Label
	}

	fields := []notify.Field{
		{Name: "Size", Value: label, Inline: true},
		{Name: "Price", Value: fmt.Sprintf("%.2f", snap.Product.Price), Inline: true},
		{Name: "Product ID", Value: entry.ProductID, Inline: true},
	}
	if snap.Product.Brand != "" {
		fields = append(fields, notify.Field{Name: "Brand", Value: snap.Product.Brand, Inline: true})
	}
	if snap.Product.DiscountLabel != "" {
		fields = append(fields, notify.Field{Name: "Discount", Value: snap.Product.DiscountLabel, Inline: true})
	}
	if message != "" {
		fields = append(fields, notify.Field{Name: "Cart", Value: message})
	}

	eng.notifier.Send(ctx, notify.Alert{
		Title:    "Reserved: " + snap.Product.Title,
		Severity: notify.SeveritySuccess,
		Fields:   fields,
	})
}

// Package watch is the stock-transition core: the registry of tracked
// products, the transition engine that turns availability edges into
// reservations and alerts, and the sweep scheduler.
package watch

import (
	"sort"
	"time"

	"github.com/kellervogt/restocker/internal/catalog"
)

// Entry is one tracked product. All fields are guarded by the registry lock;
// the engine mutates them in place during evaluation.
type Entry struct {
	ProductID string

	// WatchAll monitors for any size becoming available (used for products
	// currently fully out of stock). When false, Watched holds the specific
	// size ids under watch.
	WatchAll bool
	Watched  map[string]bool

	// HadAnySize is only meaningful in watch-all mode: whether the last
	// snapshot had at least one available size.
	HadAnySize bool

	// Notified holds sizes that were alerted and not yet re-armed by an
	// out-of-stock observation.
	Notified map[string]bool

	PrevAvail   catalog.Availability
	LastProduct catalog.Product
	LastSizes   catalog.SizeMapping
}

func newEntry(productID string, watchAll bool, sizes []string) *Entry {
	watched := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		watched[s] = true
	}
	return &Entry{
		ProductID: productID,
		WatchAll:  watchAll,
		Watched:   watched,
		Notified:  map[string]bool{},
		PrevAvail: catalog.Availability{},
	}
}

// watchedSizes returns the watched size ids in stable order.
func (e *Entry) watchedSizes() []string {
	sizes := make([]string, 0, len(e.Watched))
	for s := range e.Watched {
		sizes = append(sizes, s)
	}
	sort.Strings(sizes)
	return sizes
}

// EntryView is the read-only projection of an entry for the admin surface.
type EntryView struct {
	Key           string               `json:"key"`
	Mode          string               `json:"mode"`
	WatchedSizes  []string             `json:"watched_sizes,omitempty"`
	NotifiedSizes []string             `json:"notified_sizes"`
	HadAnySize    bool                 `json:"had_any_size"`
	Product       catalog.Product      `json:"product"`
	Sizes         catalog.SizeMapping  `json:"sizes"`
	Availability  catalog.Availability `json:"availability"`
}

func (e *Entry) view() EntryView {
	mode := "sizes"
	if e.WatchAll {
		mode = "any"
	}
	notified := make([]string, 0, len(e.Notified))
	for s := range e.Notified {
		notified = append(notified, s)
	}
	sort.Strings(notified)

	avail := make(catalog.Availability, len(e.PrevAvail))
	for k, v := range e.PrevAvail {
		avail[k] = v
	}
	sizes := make(catalog.SizeMapping, len(e.LastSizes))
	for k, v := range e.LastSizes {
		sizes[k] = v
	}

	v := EntryView{
		Key:           e.ProductID,
		Mode:          mode,
		NotifiedSizes: notified,
		HadAnySize:    e.HadAnySize,
		Product:       e.LastProduct,
		Sizes:         sizes,
		Availability:  avail,
	}
	if !e.WatchAll {
		v.WatchedSizes = e.watchedSizes()
	}
	return v
}

// HistoryEntry records a product that was ever added to monitoring. Its
// lifecycle is independent from the watch entry: removal from the registry
// leaves history untouched.
type HistoryEntry struct {
	ProductID  string    `json:"product_id"`
	Title      string    `json:"title"`
	AddedAt    time.Time `json:"added_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

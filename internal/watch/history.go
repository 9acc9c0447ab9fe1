package watch

import (
	"sort"
	"sync"
	"time"
)

// History is the append-only-by-key record of every product ever added to
// monitoring. Removing a watch entry leaves its history untouched; only an
// explicit clear deletes records.
type History struct {
	mu      sync.Mutex
	entries map[string]*HistoryEntry
}

func NewHistory() *History {
	return &History{entries: map[string]*HistoryEntry{}}
}

// Record creates the entry on first add, or refreshes title and timestamp.
func (h *History) Record(productID, title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	if e, exists := h.entries[productID]; exists {
		e.Title = title
		e.LastSeenAt = now
		return
	}
	h.entries[productID] = &HistoryEntry{
		ProductID:  productID,
		Title:      title,
		AddedAt:    now,
		LastSeenAt: now,
	}
}

// Touch bumps the last-seen timestamp of a known product.
func (h *History) Touch(productID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, exists := h.entries[productID]; exists {
		e.LastSeenAt = time.Now()
	}
}

// List returns all records ordered by the time the product was first added.
func (h *History) List() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out
}

// Clear deletes all records.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = map[string]*HistoryEntry{}
}

package watch

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrAlreadyWatched = errors.New("product is already being watched")
	ErrNotWatched     = errors.New("product is not being watched")
)

// Registry owns all watch entries. Every entry mutation happens under its
// lock, including engine evaluation, so no two operations on the same entry
// ever interleave.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]*Entry{}}
}

// Insert adds a fully constructed entry. Fails if the key is already present.
func (r *Registry) Insert(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.ProductID]; exists {
		return ErrAlreadyWatched
	}
	r.entries[entry.ProductID] = entry
	return nil
}

// Delete removes an entry. Returns false if the key was absent, along with
// whether the registry is now empty.
func (r *Registry) Delete(key string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; !exists {
		return false, len(r.entries) == 0
	}
	delete(r.entries, key)
	return true, len(r.entries) == 0
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Keys returns a stable snapshot of registry keys for one sweep; entries
// added or removed mid-sweep do not disturb the iteration.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UpdateSizes replaces the watched-size set of a specific-size entry without
// touching its notified memory or previous availability. A size already in
// stock when added will not alert until it toggles out and back in.
func (r *Registry) UpdateSizes(key string, sizes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[key]
	if !exists {
		return ErrNotWatched
	}
	watched := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		watched[s] = true
	}
	entry.Watched = watched
	entry.WatchAll = false
	return nil
}

// ResetNotifications clears the notified memory unconditionally, re-arming
// all alerts for the entry.
func (r *Registry) ResetNotifications(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[key]
	if !exists {
		return ErrNotWatched
	}
	entry.Notified = map[string]bool{}
	return nil
}

// Views returns read-only projections of all entries, sorted by key.
func (r *Registry) Views() []EntryView {
	r.mu.Lock()
	defer r.mu.Unlock()
	views := make([]EntryView, 0, len(r.entries))
	for _, e := range r.entries {
		views = append(views, e.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Key < views[j].Key })
	return views
}

// Evaluate runs fn against the entry under the registry lock. Returns false
// if the entry was removed since the sweep captured its key snapshot.
func (r *Registry) Evaluate(key string, fn func(*Entry) Outcome) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[key]
	if !exists {
		return Outcome{}, false
	}
	return fn(entry), true
}

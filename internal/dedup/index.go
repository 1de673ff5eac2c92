// Package dedup tracks document identities seen during a crawl.
//
// The same attachment routinely appears on several tabs of a case card.
// The index admits each identity once for fetching while still recording
// every tab that referenced it, so the output can report provenance
// without fetching the file twice.
package dedup

import (
	"sort"
	"sync"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// Index is an in-memory registry of admitted document identities.
// Safe for concurrent use.
type Index struct {
	mu sync.Mutex

	// seen maps identity key to the set of tabs that referenced it.
	seen map[string]map[model.Tab]struct{}
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]map[model.Tab]struct{})}
}

// Admit registers a document reference. It returns true when the
// identity is new, meaning the caller should fetch the document; false
// when it was seen before, in which case only the source tab set grows.
func (i *Index) Admit(ref model.DocumentReference) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := ref.Identity().Key()
	tabs, ok := i.seen[key]
	if !ok {
		tabs = make(map[model.Tab]struct{})
		i.seen[key] = tabs
	}
	tabs[ref.SourceTab] = struct{}{}
	return !ok
}

// Seed marks an identity as already admitted without a source tab. Used
// when resuming: identities completed by a previous run must not be
// fetched again.
func (i *Index) Seed(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.seen[key]; !ok {
		i.seen[key] = make(map[model.Tab]struct{})
	}
}

// Seen reports whether the identity key has been admitted or seeded.
func (i *Index) Seen(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.seen[key]
	return ok
}

// SourceTabs returns the sorted tabs that referenced an identity.
// Returns nil for unknown identities.
func (i *Index) SourceTabs(key string) []model.Tab {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.seen[key]
	if !ok {
		return nil
	}
	tabs := make([]model.Tab, 0, len(set))
	for t := range set {
		tabs = append(tabs, t)
	}
	sort.Slice(tabs, func(a, b int) bool { return tabs[a] < tabs[b] })
	return tabs
}

// Len returns the number of distinct identities.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.seen)
}

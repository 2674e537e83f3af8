package index

import (
	"sync/atomic"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// Snapshot binds one completed load: the frozen record store, the search
// index built over it, and the load report. A snapshot never changes after
// construction, so readers share it freely.
type Snapshot struct {
	Store    *Store
	Search   *SearchIndex
	Report   catalog.LoadReport
	LoadedAt time.Time
}

// EmptySnapshot builds a snapshot with no records. It is published before
// the first load completes so queries return empty results, not errors.
func EmptySnapshot() (*Snapshot, error) {
	store := NewStore()
	store.Freeze()
	search, err := BuildSearchIndex(store)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Store: store, Search: search}, nil
}

// Holder publishes the current snapshot. Readers always observe a complete
// load or the previous one, never a half-built state; a failed load leaves
// the previous snapshot in place because nothing is ever swapped in for it.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates a holder publishing the given snapshot.
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap publishes next and returns the superseded snapshot.
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}

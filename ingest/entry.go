package ingest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/akumuli/ingestd/ingest/extent"
)

// entry is the per-series single-writer token. Go has no shared
// strong/weak reference-count primitive equivalent to C++'s
// shared_ptr::unique(), so availability is tracked with an explicit
// owner field guarded by the entry's own mutex instead.
type entry struct {
	mu     sync.Mutex
	handle extent.List
	owner  uuid.UUID // uuid.Nil means unowned
}

func newEntry(handle extent.List) *entry {
	return &entry{handle: handle}
}

// isAvailable reports whether the entry currently has no owner.
func (e *entry) isAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner == uuid.Nil
}

// tryAcquire grants ownership of the handle to owner if the entry is
// currently unowned. It never blocks.
func (e *entry) tryAcquire(owner uuid.UUID) (Status, extent.List) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.owner != uuid.Nil {
		return StatusBusy, nil
	}
	e.owner = owner
	return StatusOK, e.handle
}

// release clears the owner field iff it currently matches owner. A
// mismatched release (e.g. from a session that does not hold the token)
// is a no-op.
func (e *entry) release(owner uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.owner == owner {
		e.owner = uuid.Nil
	}
}

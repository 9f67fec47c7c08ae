package ingest

import (
	"sync"

	"github.com/akumuli/ingestd/pkg/rhh"
)

// catalog is the bidirectional canonical-name <-> ID mapping. The
// forward index is a Robin Hood hash map adapted from the teacher's
// series-file index; rhh.HashMap is not itself safe for concurrent
// access, so catalog wraps it with its own mutex. The reverse index is a
// plain map since ids are dense machine words, not byte slices.
type catalog struct {
	mu      sync.RWMutex
	forward *rhh.HashMap
	reverse map[ID][]byte
}

func newCatalog() *catalog {
	return &catalog{
		forward: rhh.NewHashMap(rhh.DefaultOptions),
		reverse: make(map[ID][]byte),
	}
}

// lookup returns the id registered for name, if any.
func (c *catalog) lookup(name []byte) (ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.forward.Get(name)
	if !ok {
		return NoID, false
	}
	return ID(v), true
}

// name returns the canonical name registered for id, if any.
func (c *catalog) name(id ID) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.reverse[id]
	return n, ok
}

// register inserts a new (name, id) pair. Callers must have already
// confirmed name is not present via lookup; register itself takes no
// allocation lock beyond the catalog's own, so the registry is
// responsible for serializing id allocation under metaMu.
func (c *catalog) register(name []byte, id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Store a private copy: raw name buffers handed in by callers may be
	// reused scratch space.
	owned := append([]byte(nil), name...)
	c.forward.Put(owned, uint64(id))
	c.reverse[id] = owned
}

// len returns the number of registered names.
func (c *catalog) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forward.Len()
}

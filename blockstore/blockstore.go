// Package blockstore provides a content-addressed store for the opaque
// blocks flushed by an extent list once it accumulates enough samples.
// Addresses are derived from the block's content, so two extent lists
// that happen to flush identical payloads share storage.
package blockstore

import "errors"

// ErrNotFound is returned by Read when no block exists at Addr.
var ErrNotFound = errors.New("blockstore: block not found")

// Addr identifies a stored block by the 64-bit digest of its content.
type Addr uint64

// Store persists opaque blocks and returns their content address. A
// Store must be safe for concurrent use: the registry's entries flush
// independently and in parallel.
type Store interface {
	// Append writes block and returns its content address. Writing the
	// same content twice returns the same Addr without duplicating
	// storage.
	Append(block []byte) (Addr, error)

	// Read returns the block previously stored at addr, or ErrNotFound.
	Read(addr Addr) ([]byte, error)
}

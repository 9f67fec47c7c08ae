// Package metastore provides durable storage for the registry's name
// catalog and per-series rescue points, surviving process restarts. It is
// the wired counterpart to the "metadata store" the distilled design
// treats as an external collaborator.
package metastore

import "github.com/akumuli/ingestd/blockstore"

// NameRecord pairs a canonical series name with the id the registry
// assigned it the first time the name was seen.
type NameRecord struct {
	Name []byte
	ID   uint64
}

// Store durably records the registry's name catalog and rescue points.
// Implementations must be safe for concurrent use.
type Store interface {
	// InsertNewNames appends newly registered (name, id) pairs to the
	// durable catalog. Existing entries are left untouched.
	InsertNewNames(names []NameRecord) error

	// UpsertRescuePoints replaces the durable rescue-point set for each
	// id present in points with the supplied addresses.
	UpsertRescuePoints(points map[uint64][]blockstore.Addr) error

	// Load returns every durably recorded name and rescue point, for use
	// at startup to repopulate the in-memory registry.
	Load() ([]NameRecord, map[uint64][]blockstore.Addr, error)
}

package ingest

// ID identifies one series for the lifetime of the database. Zero is
// reserved to mean "no match" and is never assigned by the registry.
type ID uint64

// NoID is the zero value of ID, returned whenever a lookup misses.
const NoID ID = 0

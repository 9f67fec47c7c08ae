// Package extent defines the append-only, single-writer tree handle that
// backs one series. The registry owns exactly one extent list per series
// and never shares a live handle between two sessions at once.
package extent

import "github.com/akumuli/ingestd/blockstore"

// AppendOutcome reports the result of a single Append call.
type AppendOutcome byte

const (
	// OutcomeOK indicates the sample was committed.
	OutcomeOK AppendOutcome = iota
	// OutcomeFlushNeeded indicates the sample was committed and the
	// caller should fetch Roots and publish them as rescue points.
	OutcomeFlushNeeded
	// OutcomeFailLateWrite indicates the timestamp was at or before the
	// last committed sample and nothing was written.
	OutcomeFailLateWrite
	// OutcomeFailBadID indicates the handle does not recognize its own
	// id, used by test doubles to simulate a corrupted handle.
	// Registry.BroadcastSample also returns it when no session handles a
	// broadcast sample.
	OutcomeFailBadID
)

// List is an owning handle to one series' persistent tree. It is not
// thread-safe; the registry's single-writer discipline is what makes
// that safe.
type List interface {
	// Append adds one (timestamp, value) sample.
	Append(ts int64, v float64) (AppendOutcome, error)

	// Roots returns the current set of block addresses sufficient to
	// recover the series, i.e. its rescue points.
	Roots() []blockstore.Addr
}

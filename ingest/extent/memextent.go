package extent

import (
	"encoding/binary"
	"math"

	"github.com/akumuli/ingestd/blockstore"
)

// DefaultFlushEvery is the sample count at which Mem reports
// OutcomeFlushNeeded, translating the teacher's byte-oriented
// DefaultReadySeriesSize threshold into a sample count for this
// float64-only core.
const DefaultFlushEvery = 1000

// Mem is an in-memory reference implementation of List. It buffers
// samples and, once the buffer reaches FlushEvery entries, pushes them to
// an injected blockstore.Store as a single block and reports
// OutcomeFlushNeeded.
type Mem struct {
	store      blockstore.Store
	flushEvery int

	buf       []sample
	roots     []blockstore.Addr
	lastTS    int64
	hasLastTS bool
}

type sample struct {
	ts int64
	v  float64
}

// NewMem returns an empty Mem handle backed by store. A flushEvery of
// zero or less uses DefaultFlushEvery.
func NewMem(store blockstore.Store, flushEvery int) *Mem {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &Mem{store: store, flushEvery: flushEvery}
}

// NewMemFromRoots returns a Mem handle recovered from a prior rescue
// point set. It does not read the blocks back; it only remembers the
// roots so Roots() reflects history already durable in the block store.
func NewMemFromRoots(store blockstore.Store, flushEvery int, roots []blockstore.Addr) *Mem {
	m := NewMem(store, flushEvery)
	m.roots = append(m.roots, roots...)
	return m
}

// Append adds one sample, rejecting timestamps at or before the last
// committed sample.
func (m *Mem) Append(ts int64, v float64) (AppendOutcome, error) {
	if m.hasLastTS && ts <= m.lastTS {
		return OutcomeFailLateWrite, nil
	}

	m.buf = append(m.buf, sample{ts: ts, v: v})
	m.lastTS = ts
	m.hasLastTS = true

	if len(m.buf) < m.flushEvery {
		return OutcomeOK, nil
	}

	addr, err := m.store.Append(encodeBlock(m.buf))
	if err != nil {
		return OutcomeOK, err
	}
	m.roots = append(m.roots, addr)
	m.buf = m.buf[:0]
	return OutcomeFlushNeeded, nil
}

// Roots returns the block addresses flushed so far.
func (m *Mem) Roots() []blockstore.Addr {
	roots := make([]blockstore.Addr, len(m.roots))
	copy(roots, m.roots)
	return roots
}

func encodeBlock(samples []sample) []byte {
	buf := make([]byte, 0, len(samples)*16)
	for _, s := range samples {
		var tmp [16]byte
		binary.BigEndian.PutUint64(tmp[0:8], uint64(s.ts))
		binary.BigEndian.PutUint64(tmp[8:16], math.Float64bits(s.v))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

package ingest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/akumuli/ingestd/blockstore"
	"github.com/akumuli/ingestd/ingest/extent"
	"github.com/akumuli/ingestd/ingest/nameparser"
	"github.com/akumuli/ingestd/pkg/lifecycle"
)

// Session is a per-connection ingestion context: a local name/id cache
// and the set of series this session currently owns the single-writer
// token for. It is the write API exposed to the front end.
type Session struct {
	token    uuid.UUID
	registry *Registry

	mu         sync.Mutex
	localNames map[string]ID
	localRev   map[ID][]byte
	owned      map[ID]extent.List

	res *lifecycle.Resource
}

// newSession constructs a session bound to registry. Sessions are always
// created through Registry.CreateSession so a stable token exists before
// the session is published to the registry's session set.
func newSession(registry *Registry) *Session {
	s := &Session{
		token:      uuid.New(),
		registry:   registry,
		localNames: make(map[string]ID),
		localRev:   make(map[ID][]byte),
		owned:      make(map[ID]extent.List),
		res:        &lifecycle.Resource{},
	}
	s.res.Open()
	return s
}

// InitSeriesID normalizes rawName and resolves it to a stable id,
// registering a new one with the registry on first sight.
func (s *Session) InitSeriesID(rawName []byte) (ID, Status, error) {
	canonical, err := nameparser.Normalize(rawName)
	if err != nil {
		return NoID, StatusBadArg, err
	}

	s.mu.Lock()
	if id, ok := s.localNames[string(canonical)]; ok {
		s.mu.Unlock()
		return id, StatusOK, nil
	}
	s.mu.Unlock()

	id, err := s.registry.InitSeriesID(canonical)
	if err != nil {
		return NoID, StatusNotFound, err
	}

	s.mu.Lock()
	s.localNames[string(canonical)] = id
	s.localRev[id] = canonical
	s.mu.Unlock()

	return id, StatusOK, nil
}

// GetSeriesName copies the canonical name registered for id into buf,
// following the source's get_series_name buffer convention: a positive
// return is the number of bytes written, zero means id is unknown, and
// a negative return is -len(name) when buf is too small to hold it
// (buf is left untouched in that case).
func (s *Session) GetSeriesName(id ID, buf []byte) int {
	name, status := s.SeriesName(id)
	if status != StatusOK {
		return 0
	}
	if len(buf) < len(name) {
		return -len(name)
	}
	copy(buf, name)
	return len(name)
}

// SeriesName returns the canonical name registered for id.
func (s *Session) SeriesName(id ID) ([]byte, Status) {
	s.mu.Lock()
	if name, ok := s.localRev[id]; ok {
		s.mu.Unlock()
		return name, StatusOK
	}
	s.mu.Unlock()

	name, status := s.registry.SeriesName(id)
	if status != StatusOK {
		return nil, status
	}

	s.mu.Lock()
	s.localRev[id] = name
	s.localNames[string(name)] = id
	s.mu.Unlock()

	return name, StatusOK
}

// Write appends sample to the extent list this session owns for
// sample.ID, acquiring the single-writer token from the registry or
// falling back to a broadcast if another session currently holds it.
func (s *Session) Write(sample Sample) (Status, error) {
	ref, err := s.res.Acquire()
	if err != nil {
		return StatusClosed, nil
	}
	defer ref.Release()

	if s.registry.isClosed() {
		return StatusClosed, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if handle, ok := s.owned[sample.ID]; ok {
		outcome, err := handle.Append(sample.Timestamp, sample.Value)
		if err != nil {
			return StatusOK, err
		}
		return s.interpretOutcome(outcome, sample.ID, handle)
	}

	status, handle := s.registry.TryAcquire(sample.ID, s.token)
	switch status {
	case StatusOK:
		s.owned[sample.ID] = handle
		outcome, err := handle.Append(sample.Timestamp, sample.Value)
		if err != nil {
			return StatusOK, err
		}
		return s.interpretOutcome(outcome, sample.ID, handle)
	case StatusBusy:
		outcome, roots := s.registry.BroadcastSample(sample, s.token)
		if outcome == extent.OutcomeFlushNeeded {
			s.registry.UpdateRescuePoints(sample.ID, roots)
		}
		return s.statusFromOutcome(outcome)
	default:
		return status, nil
	}
}

// receiveBroadcast is the fallback delivery path used when this session
// currently owns sample.ID but the write arrived through another
// session. It never calls back into the registry and never re-enters
// BroadcastSample: the broadcaster is holding the registry's metaMu for
// the duration of the fan-out, and taking a session lock while holding
// metaMu is only safe in this one direction. If the append needs a
// flush, the current roots are handed back rather than pushed here, so
// the caller can update rescue points after metaMu is released.
func (s *Session) receiveBroadcast(sample Sample) (handled bool, outcome extent.AppendOutcome, roots []blockstore.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.owned[sample.ID]
	if !ok {
		return false, extent.OutcomeOK, nil
	}

	outcome, err := handle.Append(sample.Timestamp, sample.Value)
	if err != nil {
		return true, extent.OutcomeOK, nil
	}
	if outcome == extent.OutcomeFlushNeeded {
		roots = handle.Roots()
	}
	return true, outcome, roots
}

// interpretOutcome translates the outcome of a direct append (this
// session owns handle) into a Status, pushing rescue points to the
// registry when a flush is needed.
func (s *Session) interpretOutcome(outcome extent.AppendOutcome, id ID, handle extent.List) (Status, error) {
	if outcome == extent.OutcomeFlushNeeded && handle != nil {
		s.registry.UpdateRescuePoints(id, handle.Roots())
	}
	status, err := s.statusFromOutcome(outcome)
	return status, err
}

// statusFromOutcome maps an append outcome to a Status without touching
// the registry; callers that need to push rescue points do so before
// calling this.
func (s *Session) statusFromOutcome(outcome extent.AppendOutcome) (Status, error) {
	switch outcome {
	case extent.OutcomeOK, extent.OutcomeFlushNeeded:
		return StatusOK, nil
	case extent.OutcomeFailLateWrite:
		return StatusLateWrite, nil
	case extent.OutcomeFailBadID:
		return StatusNotFound, nil
	default:
		return StatusNotFound, nil
	}
}

// Close releases every single-writer token this session holds and
// unregisters it from the registry. It blocks until any in-flight
// Write/receiveBroadcast call has completed.
func (s *Session) Close() error {
	if err := s.res.Close(); err != nil {
		return err
	}

	s.mu.Lock()
	owned := s.owned
	s.owned = make(map[ID]extent.List)
	s.mu.Unlock()

	for id := range owned {
		s.registry.Release(id, s.token)
	}

	s.registry.removeSession(s.token)
	return nil
}

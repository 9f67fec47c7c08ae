// Package ingest implements the ingestion registry and session layer: the
// process-wide structure that maps series names to ids, owns the
// per-series extent-list handles, arbitrates exclusive write access
// among concurrent sessions, and coordinates rescue-point durability
// metadata with the metadata store.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akumuli/ingestd/blockstore"
	"github.com/akumuli/ingestd/ingest/extent"
	"github.com/akumuli/ingestd/logger"
	"github.com/akumuli/ingestd/metastore"
)

// Registry is the process-wide ingestion registry. Lock order is
// metaMu -> tableMu -> entry mutex, and is never reversed.
type Registry struct {
	store      blockstore.Store
	meta       metastore.Store
	flushEvery int
	logger     *zap.Logger
	metrics    *Metrics

	metaMu       sync.Mutex
	catalog      *catalog
	rescuePoints map[ID][]blockstore.Addr
	pendingNames []metastore.NameRecord // registered since the last successful sync
	sessions     map[uuid.UUID]*Session
	syncCond     *sync.Cond
	nextID       uint64
	closed       bool

	tableMu sync.Mutex
	entries map[ID]*entry
}

// NewRegistry constructs a Registry backed by store and meta. flushEvery
// configures the sample count at which a newly created extent.Mem
// handle reports OutcomeFlushNeeded; zero uses extent.DefaultFlushEvery.
func NewRegistry(store blockstore.Store, meta metastore.Store, flushEvery int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		store:        store,
		meta:         meta,
		flushEvery:   flushEvery,
		logger:       log,
		metrics:      NewMetrics(),
		catalog:      newCatalog(),
		rescuePoints: make(map[ID][]blockstore.Addr),
		sessions:     make(map[uuid.UUID]*Session),
		entries:      make(map[ID]*entry),
	}
	r.syncCond = sync.NewCond(&r.metaMu)
	return r
}

// Open recovers the catalog and rescue points from the metadata store so
// a restarted daemon does not reassign ids already in use.
func (r *Registry) Open() error {
	names, points, err := r.meta.Load()
	if err != nil {
		return fmt.Errorf("load metadata store: %w", err)
	}

	// Reconstructing each series' in-memory extent handle from its rescue
	// points touches only r.store and the local slice slot, so the
	// per-series work fans out the same way the teacher's
	// CreateSeriesListIfNotExists fans construction out across partitions.
	built := make([]*entry, len(names))
	var g errgroup.Group
	for i, n := range names {
		i, roots := i, points[n.ID]
		g.Go(func() error {
			built[i] = newEntry(extent.NewMemFromRoots(r.store, r.flushEvery, roots))
			return nil
		})
	}
	g.Wait() // construction is pure and cannot fail

	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	r.tableMu.Lock()
	defer r.tableMu.Unlock()

	for i, n := range names {
		id := ID(n.ID)
		r.catalog.register(n.Name, id)
		if id > ID(r.nextID) {
			r.nextID = uint64(id)
		}
		r.entries[id] = built[i]
	}

	r.logger.Info("registry recovered from metadata store", zap.Int("series", len(names)))
	return nil
}

// InitSeriesID resolves name to an id, allocating and registering a new
// one if this is the first time name has been seen.
func (r *Registry) InitSeriesID(name []byte) (ID, error) {
	if id, ok := r.catalog.lookup(name); ok {
		return id, nil
	}

	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	// Re-check under the lock: another goroutine may have registered
	// this name while we were waiting.
	if id, ok := r.catalog.lookup(name); ok {
		return id, nil
	}

	r.nextID++
	id := ID(r.nextID)

	r.catalog.register(name, id)
	r.pendingNames = append(r.pendingNames, metastore.NameRecord{Name: append([]byte(nil), name...), ID: uint64(id)})
	r.rescuePoints[id] = nil

	r.tableMu.Lock()
	r.entries[id] = newEntry(extent.NewMem(r.store, r.flushEvery))
	r.tableMu.Unlock()

	r.syncCond.Broadcast()
	r.metrics.SeriesRegistered.Inc()

	return id, nil
}

// GetSeriesName copies the canonical name registered for id into buf,
// following the fixed-buffer convention of the source's get_series_name:
// positive return is the number of bytes written, zero means id is
// unknown, and a negative return is -len(name) when buf is too small
// (buf is left untouched in that case).
func (r *Registry) GetSeriesName(id ID, buf []byte) int {
	name, status := r.SeriesName(id)
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
func (r *Registry) SeriesName(id ID) ([]byte, Status) {
	name, ok := r.catalog.name(id)
	if !ok {
		return nil, StatusNotFound
	}
	return name, StatusOK
}

// TryAcquire attempts to grant owner the single-writer token for id.
func (r *Registry) TryAcquire(id ID, owner uuid.UUID) (Status, extent.List) {
	r.tableMu.Lock()
	e, ok := r.entries[id]
	r.tableMu.Unlock()

	if !ok {
		return StatusNotFound, nil
	}
	return e.tryAcquire(owner)
}

// Release returns the single-writer token for id to the registry,
// making it available for the next TryAcquire.
func (r *Registry) Release(id ID, owner uuid.UUID) {
	r.tableMu.Lock()
	e, ok := r.entries[id]
	r.tableMu.Unlock()

	if ok {
		e.release(owner)
	}
}

// BroadcastSample offers sample to every live session other than source,
// stopping at the first one that reports it handled the sample (i.e. the
// one currently holding the single-writer token for sample.ID). If the
// append triggered a flush, the handling session's current roots are
// returned alongside the outcome so the caller can push them to
// UpdateRescuePoints itself once metaMu is released: receiveBroadcast
// must never call back into the registry while metaMu is held, since
// that would reverse the session.mu -> metaMu lock order for whichever
// session ends up servicing the broadcast.
func (r *Registry) BroadcastSample(sample Sample, source uuid.UUID) (extent.AppendOutcome, []blockstore.Addr) {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	for token, sess := range r.sessions {
		if token == source {
			continue
		}
		if handled, outcome, roots := sess.receiveBroadcast(sample); handled {
			return outcome, roots
		}
	}
	return extent.OutcomeFailBadID, nil
}

// UpdateRescuePoints replaces the buffered rescue-point set for id with
// addrs and wakes the sync waiter.
func (r *Registry) UpdateRescuePoints(id ID, addrs []blockstore.Addr) {
	r.metaMu.Lock()
	r.rescuePoints[id] = addrs
	r.syncCond.Broadcast()
	r.metaMu.Unlock()
}

// WaitForSyncRequest blocks until the next sync signal (a new series
// registered or a rescue-point update) or until ctx is done, returning
// StatusTimeout on cancellation, StatusRetry if it woke with nothing
// pending, or StatusOK if rescue points are buffered. A signal sent
// before the call starts waiting does not end the wait.
func (r *Registry) WaitForSyncRequest(ctx context.Context) Status {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	if ctx.Err() != nil {
		return StatusTimeout
	}

	stop := context.AfterFunc(ctx, func() {
		r.metaMu.Lock()
		r.syncCond.Broadcast()
		r.metaMu.Unlock()
	})
	defer stop()

	r.syncCond.Wait()

	if ctx.Err() != nil {
		return StatusTimeout
	}
	if len(r.rescuePoints) == 0 {
		return StatusRetry
	}
	return StatusOK
}

// SyncWithMetadataStorage drains newly registered names and buffered
// rescue points into the metadata store. On failure the in-memory
// buffers are left untouched so a subsequent call can retry.
func (r *Registry) SyncWithMetadataStorage() error {
	r.metaMu.Lock()
	names := r.pendingNames
	points := make(map[uint64][]blockstore.Addr, len(r.rescuePoints))
	for id, addrs := range r.rescuePoints {
		points[uint64(id)] = addrs
	}
	r.metaMu.Unlock()

	log, logEnd := logger.NewOperation(r.logger, "sync metadata", "registry_sync", zap.Int("names", len(names)), zap.Int("series", len(points)))
	defer logEnd()

	if len(names) > 0 {
		if err := r.meta.InsertNewNames(names); err != nil {
			log.Error("sync metadata failed inserting names", zap.Error(err))
			return fmt.Errorf("sync metadata: %w", err)
		}
	}
	if len(points) > 0 {
		if err := r.meta.UpsertRescuePoints(points); err != nil {
			log.Error("sync metadata failed upserting rescue points", zap.Error(err))
			return fmt.Errorf("sync metadata: %w", err)
		}
	}

	r.metaMu.Lock()
	r.pendingNames = r.pendingNames[len(names):]
	for id := range points {
		delete(r.rescuePoints, ID(id))
	}
	r.metaMu.Unlock()

	r.metrics.SyncCompleted.Inc()
	return nil
}

// CreateSession constructs a new session and registers it with the
// registry so broadcasts can reach it. The session is built inside the
// registry so a stable token exists before it is published to
// r.sessions.
func (r *Registry) CreateSession() *Session {
	sess := newSession(r)

	r.metaMu.Lock()
	r.sessions[sess.token] = sess
	r.metaMu.Unlock()

	r.metrics.SessionsOpen.Inc()
	return sess
}

// removeSession unregisters a closed session.
func (r *Registry) removeSession(token uuid.UUID) {
	r.metaMu.Lock()
	delete(r.sessions, token)
	r.metaMu.Unlock()

	r.metrics.SessionsOpen.Dec()
}

// Close tears the registry down. Sessions already holding a reference
// to it will observe StatusClosed on their next write.
func (r *Registry) Close() error {
	r.metaMu.Lock()
	r.closed = true
	r.syncCond.Broadcast()
	r.metaMu.Unlock()
	return nil
}

// PrometheusCollectors returns the registry's metric collectors for
// registration with a prometheus.Registerer.
func (r *Registry) PrometheusCollectors() []prometheus.Collector {
	return r.metrics.PrometheusCollectors()
}

// isClosed reports whether Close has been called.
func (r *Registry) isClosed() bool {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()
	return r.closed
}

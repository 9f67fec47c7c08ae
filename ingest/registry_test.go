package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/akumuli/ingestd/blockstore"
	"github.com/akumuli/ingestd/metastore"
)

type memBlockStore struct {
	blocks map[blockstore.Addr][]byte
	next   uint64
}

func newMemBlockStore() *memBlockStore {
	return &memBlockStore{blocks: make(map[blockstore.Addr][]byte)}
}

func (s *memBlockStore) Append(block []byte) (blockstore.Addr, error) {
	s.next++
	addr := blockstore.Addr(s.next)
	s.blocks[addr] = block
	return addr, nil
}

func (s *memBlockStore) Read(addr blockstore.Addr) ([]byte, error) {
	b, ok := s.blocks[addr]
	if !ok {
		return nil, blockstore.ErrNotFound
	}
	return b, nil
}

type memMetaStore struct {
	names  []metastore.NameRecord
	points map[uint64][]blockstore.Addr
}

func newMemMetaStore() *memMetaStore {
	return &memMetaStore{points: make(map[uint64][]blockstore.Addr)}
}

func (s *memMetaStore) InsertNewNames(names []metastore.NameRecord) error {
	s.names = append(s.names, names...)
	return nil
}

func (s *memMetaStore) UpsertRescuePoints(points map[uint64][]blockstore.Addr) error {
	for id, addrs := range points {
		s.points[id] = addrs
	}
	return nil
}

func (s *memMetaStore) Load() ([]metastore.NameRecord, map[uint64][]blockstore.Addr, error) {
	return s.names, s.points, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(newMemBlockStore(), newMemMetaStore(), 2, nil)
}

// Scenario A: create-and-write on one session.
func TestRegistry_CreateAndWrite(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()
	defer s.Close()

	id, status, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil || status != StatusOK {
		t.Fatalf("InitSeriesID: status=%v err=%v", status, err)
	}

	status, err = s.Write(NewSample(id, 100, 1.5))
	if err != nil || status != StatusOK {
		t.Fatalf("Write: status=%v err=%v", status, err)
	}
}

// Scenario B: cross-session broadcast.
func TestRegistry_CrossSessionBroadcast(t *testing.T) {
	r := newTestRegistry()
	s1 := r.CreateSession()
	defer s1.Close()
	s2 := r.CreateSession()
	defer s2.Close()

	id, _, err := s1.InitSeriesID([]byte("m,x=1"))
	if err != nil {
		t.Fatal(err)
	}
	if status, err := s1.Write(NewSample(id, 1, 10.0)); err != nil || status != StatusOK {
		t.Fatalf("s1 write: status=%v err=%v", status, err)
	}

	id2, _, err := s2.InitSeriesID([]byte("m,x=1"))
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Fatalf("id mismatch: %v vs %v", id2, id)
	}

	if status, err := s2.Write(NewSample(id, 2, 20.0)); err != nil || status != StatusOK {
		t.Fatalf("s2 write via broadcast: status=%v err=%v", status, err)
	}

	s2.mu.Lock()
	_, owns := s2.owned[id]
	s2.mu.Unlock()
	if owns {
		t.Fatal("s2 must not have acquired the single-writer token via broadcast")
	}
}

// Scenario D: flush signalling drains into the metadata store.
func TestRegistry_FlushSignalling(t *testing.T) {
	r := newTestRegistry() // flushEvery = 2
	s := r.CreateSession()
	defer s.Close()

	id, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}

	if status, err := s.Write(NewSample(id, 1, 1.0)); err != nil || status != StatusOK {
		t.Fatalf("write 1: status=%v err=%v", status, err)
	}
	if status, err := s.Write(NewSample(id, 2, 2.0)); err != nil || status != StatusOK {
		t.Fatalf("write 2 (flush): status=%v err=%v", status, err)
	}

	if err := r.SyncWithMetadataStorage(); err != nil {
		t.Fatal(err)
	}

	meta := r.meta.(*memMetaStore)
	if len(meta.points[uint64(id)]) != 1 {
		t.Fatalf("metadata store rescue points = %v, want 1 root", meta.points[uint64(id)])
	}

	r.metaMu.Lock()
	_, pending := r.rescuePoints[id]
	r.metaMu.Unlock()
	if pending {
		t.Fatal("in-memory rescue point buffer should be drained after a successful sync")
	}
}

// Scenario E: sync wait.
func TestRegistry_WaitForSyncRequest(t *testing.T) {
	r := newTestRegistry()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if status := r.WaitForSyncRequest(ctx); status != StatusTimeout {
		t.Fatalf("got %v, want StatusTimeout with nothing pending", status)
	}

	done := make(chan Status, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- r.WaitForSyncRequest(ctx)
	}()

	s := r.CreateSession()
	defer s.Close()
	id, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}
	r.UpdateRescuePoints(id, []blockstore.Addr{1})

	select {
	case status := <-done:
		if status != StatusOK {
			t.Fatalf("got %v, want StatusOK once rescue points are buffered", status)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForSyncRequest did not wake up after UpdateRescuePoints")
	}
}

// Id uniqueness & stability (invariant 1).
func TestRegistry_IDStability(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()
	defer s.Close()

	id1, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}
	id2, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("same name produced different ids: %v vs %v", id1, id2)
	}

	name, status := s.SeriesName(id1)
	if status != StatusOK {
		t.Fatalf("SeriesName status=%v", status)
	}
	if len(name) == 0 {
		t.Fatal("expected a non-empty canonical name")
	}
}

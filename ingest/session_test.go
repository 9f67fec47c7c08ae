package ingest

import (
	"bytes"
	"testing"
)

// Scenario C: late write rejection.
func TestSession_LateWriteRejection(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()
	defer s.Close()

	id, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}

	if status, err := s.Write(NewSample(id, 10, 1.0)); err != nil || status != StatusOK {
		t.Fatalf("first write: status=%v err=%v", status, err)
	}

	status, err := s.Write(NewSample(id, 5, 2.0))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusLateWrite {
		t.Fatalf("got %v, want StatusLateWrite", status)
	}
}

func TestSession_WriteUnknownID(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()
	defer s.Close()

	status, err := s.Write(NewSample(ID(999), 1, 1.0))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNotFound {
		t.Fatalf("got %v, want StatusNotFound", status)
	}
}

func TestSession_CloseReleasesOwnedEntries(t *testing.T) {
	r := newTestRegistry()
	s1 := r.CreateSession()

	id, _, err := s1.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}
	if status, err := s1.Write(NewSample(id, 1, 1.0)); err != nil || status != StatusOK {
		t.Fatalf("write: status=%v err=%v", status, err)
	}

	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	// Now a second session should be able to acquire the token directly
	// rather than needing to fall back to broadcast.
	s2 := r.CreateSession()
	defer s2.Close()

	status, handle := r.TryAcquire(id, s2.token)
	if status != StatusOK || handle == nil {
		t.Fatalf("TryAcquire after close: status=%v handle=%v", status, handle)
	}
}

// Scenario F / property 6: get-name buffer semantics.
func TestSession_GetSeriesNameBufferContract(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()
	defer s.Close()

	id, _, err := s.InitSeriesID([]byte("cpu,host=a"))
	if err != nil {
		t.Fatal(err)
	}

	name, status := s.SeriesName(id)
	if status != StatusOK {
		t.Fatalf("SeriesName status=%v", status)
	}
	L := len(name)

	buf := make([]byte, L)
	for i := range buf {
		buf[i] = 0xFF
	}
	if n := s.GetSeriesName(id, buf); n != L {
		t.Fatalf("GetSeriesName(exact) = %d, want %d", n, L)
	}
	if !bytes.Equal(buf, name) {
		t.Fatalf("GetSeriesName(exact) wrote %q, want %q", buf, name)
	}

	small := make([]byte, L-1)
	for i := range small {
		small[i] = 0xFF
	}
	if n := s.GetSeriesName(id, small); n != -L {
		t.Fatalf("GetSeriesName(undersized) = %d, want %d", n, -L)
	}
	for i, b := range small {
		if b != 0xFF {
			t.Fatalf("GetSeriesName(undersized) touched buf at %d", i)
		}
	}

	if n := s.GetSeriesName(ID(9999), buf); n != 0 {
		t.Fatalf("GetSeriesName(unknown id) = %d, want 0", n)
	}
}

func TestSession_WriteAfterClose(t *testing.T) {
	r := newTestRegistry()
	s := r.CreateSession()

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	status, err := s.Write(NewSample(ID(1), 1, 1.0))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusClosed {
		t.Fatalf("got %v, want StatusClosed", status)
	}
}

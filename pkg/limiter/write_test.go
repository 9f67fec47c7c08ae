package limiter_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
	"time"

	"github.com/akumuli/ingestd/pkg/limiter"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}

func TestWriter_NoLimit(t *testing.T) {
	var buf bytes.Buffer
	w := limiter.NewWriter(newWriteCloser(&buf), 0, 0)

	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriter_ThrottlesLargeWrites(t *testing.T) {
	w := limiter.NewWriter(newWriteCloser(ioutil.Discard), 100, 100)

	data := make([]byte, 1000)
	start := time.Now()
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	// 1000 bytes at 100 B/s with a 100 B burst takes roughly 9 seconds, so
	// even a very lax bound confirms the writer is actually throttling.
	if elapsed < 500*time.Millisecond {
		t.Fatalf("write returned too quickly for a rate-limited writer: %v", elapsed)
	}
}

func TestWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := limiter.NewWriter(newWriteCloser(&buf), 0, 0)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

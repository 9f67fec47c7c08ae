// Package limiter provides an io.Writer that throttles the byte rate of an
// underlying writer, used to keep the block store's flush-to-disk traffic
// from starving concurrent ingestion sessions sharing the same volume.
package limiter

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Writer wraps an io.WriteCloser and limits the rate, in bytes per second,
// at which data can be written through it.
type Writer struct {
	w       io.WriteCloser
	limiter *rate.Limiter
	burst   int
}

// NewWriter returns a Writer that limits writes to w to limit bytes per
// second, allowing bursts of up to burst bytes. A limit of zero disables
// throttling; with a positive limit, a burst of zero or less allows bursts
// of up to limit bytes.
func NewWriter(w io.WriteCloser, limit, burst int) *Writer {
	if limit > 0 && burst <= 0 {
		burst = limit
	}
	lw := &Writer{w: w, burst: burst}
	if limit > 0 {
		lw.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	return lw
}

// Write writes p to the underlying writer, blocking as needed to stay under
// the configured rate limit. Writes larger than the configured burst size
// are split so that rate.Limiter never rejects them outright.
func (w *Writer) Write(p []byte) (int, error) {
	if w.limiter == nil {
		return w.w.Write(p)
	}

	var written int
	for len(p) > 0 {
		n := len(p)
		if w.burst > 0 && n > w.burst {
			n = w.burst
		}
		if err := w.limiter.WaitN(context.Background(), n); err != nil {
			return written, err
		}
		nn, err := w.w.Write(p[:n])
		written += nn
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// Close closes the underlying writer.
func (w *Writer) Close() error {
	return w.w.Close()
}

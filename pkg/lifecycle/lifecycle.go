// Package lifecycle provides small composable helpers for sequencing the
// startup and shutdown of the daemon's owned resources (block store,
// metadata store, registry, sessions) so that a failure partway through
// Open unwinds cleanly and Close aggregates every error it encounters
// instead of silently dropping all but the first.
package lifecycle

import (
	"io"

	"go.uber.org/multierr"
)

// OpenCloser is something that can be opened and closed, such as the block
// store or metadata store.
type OpenCloser interface {
	Open() error
	io.Closer
}

// Opener is a helper to abstract the pattern of opening multiple things,
// exiting early if any open fails, and closing any of the opened things
// in the case of failure.
type Opener struct {
	opened []io.Closer
	err    error
}

// Open attempts to open the resource. If an error has happened already
// then no calls are made to the resource.
func (o *Opener) Open(res OpenCloser) {
	if o.err != nil {
		return
	}
	o.err = res.Open()
	if o.err == nil {
		o.opened = append(o.opened, res)
	}
}

// Done returns the error of the first open and closes in reverse
// order any opens that have already happened if there was an error.
func (o *Opener) Done() error {
	if o.err == nil {
		return nil
	}
	for i := len(o.opened) - 1; i >= 0; i-- {
		o.opened[i].Close()
	}
	return o.err
}

// Closer is a helper to abstract the pattern of closing multiple things and
// aggregating every error encountered, rather than keeping only the first
// and discarding the rest.
type Closer struct {
	err error
}

// Close closes cl and folds any error into the aggregate returned by Done.
func (c *Closer) Close(cl io.Closer) {
	c.err = multierr.Append(c.err, cl.Close())
}

// Done returns the aggregate of every error passed to Close.
func (c *Closer) Done() error {
	return c.err
}

package ingest

import "errors"

// ErrRegistryClosed describes a registry that has been torn down while a
// session still held a reference to it. Session.Write reports that
// condition as StatusClosed with a nil error; no function in this
// package returns ErrRegistryClosed.
var ErrRegistryClosed = errors.New("ingest: registry closed")

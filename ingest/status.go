package ingest

// Status is a stable result code returned across the session/registry API
// boundary. Most are informational outcomes, not Go errors, because the
// caller (a session handling a write from the wire) treats BUSY and RETRY
// as expected signals rather than failures.
type Status byte

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = iota
	// StatusBusy indicates a series is currently owned by another session;
	// the caller should fall back to a registry broadcast.
	StatusBusy
	// StatusNotFound indicates an unknown series id.
	StatusNotFound
	// StatusTimeout indicates a sync wait exceeded its deadline.
	StatusTimeout
	// StatusRetry indicates a spurious wakeup with nothing to sync yet.
	StatusRetry
	// StatusClosed indicates the session or registry has been torn down.
	StatusClosed
	// StatusBadArg indicates a malformed request, such as a series name
	// that fails to normalize.
	StatusBadArg
	// StatusLateWrite indicates a timestamp at or before the series'
	// last committed sample.
	StatusLateWrite
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBusy:
		return "BUSY"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusRetry:
		return "RETRY"
	case StatusClosed:
		return "CLOSED"
	case StatusBadArg:
		return "BAD_ARG"
	case StatusLateWrite:
		return "LATE_WRITE"
	default:
		return "UNKNOWN"
	}
}

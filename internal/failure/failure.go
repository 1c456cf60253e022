// Package failure classifies the ways a client operation can go wrong so the
// UI can decide between an inline message, a modal notice, or a log line.
package failure

import "errors"

type Kind int

const (
	// Start is a transport error or non-2xx response on the scan start call.
	Start Kind = iota + 1
	// PollTransient is a transport error while polling; the poller retries.
	PollTransient
	// ScanReported is an error status reported by the server for a running scan.
	ScanReported
	// Fetch is a failed results fetch; the stale list stays on screen.
	Fetch
	// Mutation is a failed delete, bulk delete or open request.
	Mutation
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case PollTransient:
		return "poll"
	case ScanReported:
		return "scan"
	case Fetch:
		return "fetch"
	case Mutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// Error carries a user-facing message next to the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err is a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing text for err, falling back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

package apiclient

import (
	"errors"

	"github.com/okian/signupdesk/internal/env"
)

// Sentinel kinds for API client errors.
var (
	ErrTimeout          = errors.New("request timed out")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrDecode           = errors.New("decode response failed")
	ErrBadBaseURL       = errors.New("invalid base url")
)

// Failure classifies a call that produced no usable response.
type Failure int

const (
	// FailureGeneric covers everything else: server errors, malformed
	// bodies, DNS, refused connections.
	FailureGeneric Failure = iota
	// FailureTimeout means the request's own timer cancelled it.
	FailureTimeout
	// FailureOffline means the host reported no connectivity when the
	// call failed.
	FailureOffline
)

// String returns the metrics label of f.
func (f Failure) String() string {
	switch f {
	case FailureTimeout:
		return "timeout"
	case FailureOffline:
		return "offline"
	default:
		return "failed"
	}
}

// Classify decides which failure err represents. The connectivity signal is
// read now, at the moment of failure; timeouts win over offline.
func Classify(err error, e env.Environment) Failure {
	switch {
	case errors.Is(err, ErrTimeout):
		return FailureTimeout
	case e != nil && !e.Online():
		return FailureOffline
	default:
		return FailureGeneric
	}
}

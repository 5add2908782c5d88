package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/msto63/taskdir/pkg/naming"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Lifecycle errors
var (
	// ErrAlreadyInitialized is reported when Init runs on a live facade or
	// while another facade in the process owns the transport.
	ErrAlreadyInitialized = errors.New("transport already initialized")

	// ErrNotInitialized is returned by every operation before Init succeeded
	ErrNotInitialized = errors.New("transport not initialized")

	// ErrRegistryUnavailable is returned by Run when the name service could
	// not be acquired.
	ErrRegistryUnavailable = errors.New("could not acquire NameService")
)

// Reason classifies a discovery failure
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonWrongType   Reason = "wrong_type"
	ReasonTimeout     Reason = "timeout"
	ReasonUnavailable Reason = "unavailable"
	ReasonTransport   Reason = "transport"
)

// Error means the target does not exist, exists with the wrong type, or
// could not be reached. Every lookup failure is an *Error; use Reason to
// tell the causes apart.
type Error struct {
	Reason Reason
	Name   string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	var msg string
	switch e.Reason {
	case ReasonNotFound:
		msg = fmt.Sprintf("server %q does not exist", e.Name)
	case ReasonWrongType:
		msg = fmt.Sprintf("server %q has the wrong type", e.Name)
	case ReasonTimeout:
		msg = fmt.Sprintf("timed out resolving %q", e.Name)
	case ReasonUnavailable:
		msg = fmt.Sprintf("registry unreachable while resolving %q", e.Name)
	default:
		msg = fmt.Sprintf("transport fault while resolving %q", e.Name)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying fault
func (e *Error) Unwrap() error {
	return e.Err
}

// IsDiscoveryError reports whether err is (or wraps) an *Error
func IsDiscoveryError(err error) bool {
	var derr *Error
	return errors.As(err, &derr)
}

// ReasonOf returns the reason of a discovery error, or "" for other errors
func ReasonOf(err error) Reason {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Reason
	}
	return ""
}

// classify maps a fault raised while resolving name to an *Error. Faults
// that are neither gRPC status errors nor known sentinels come back
// unchanged.
func classify(name string, err error) error {
	if err == nil {
		return nil
	}

	var derr *Error
	if errors.As(err, &derr) {
		return err
	}

	switch {
	case errors.Is(err, naming.ErrWrongType):
		return &Error{Reason: ReasonWrongType, Name: name}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Reason: ReasonTimeout, Name: name, Err: err}
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	reason := ReasonTransport
	switch st.Code() {
	case codes.NotFound:
		reason = ReasonNotFound
	case codes.DeadlineExceeded:
		reason = ReasonTimeout
	case codes.Unavailable:
		reason = ReasonUnavailable
	}
	return &Error{Reason: reason, Name: name, Err: err}
}

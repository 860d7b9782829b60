package printclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind categorises a failed submission
type ErrorKind int

const (
	// InvalidIdentifier means the agent rejected the identifier format (400)
	InvalidIdentifier ErrorKind = iota
	// NotFound means the identifier matched no job (404)
	NotFound
	// Unauthorized means the device key was rejected (401)
	Unauthorized
	// ServerError is any other non-200 status
	ServerError
	// TransportFailure means no response was received
	TransportFailure
	// MalformedResponse is a 200 whose body is not a JSON object
	MalformedResponse
)

// String returns a name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case InvalidIdentifier:
		return "InvalidIdentifier"
	case NotFound:
		return "NotFound"
	case Unauthorized:
		return "Unauthorized"
	case ServerError:
		return "ServerError"
	case TransportFailure:
		return "TransportFailure"
	case MalformedResponse:
		return "MalformedResponse"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// TransportReason narrows down a TransportFailure
type TransportReason int

const (
	ReasonGeneral TransportReason = iota
	ReasonTimeout
	ReasonConnectionRefused
	ReasonDNS
	ReasonHostUnreachable
	ReasonNetworkUnreachable
)

// Error is a failed submission or health check
type Error struct {
	Kind       ErrorKind
	StatusCode int             // HTTP status, 0 when no response was received
	Reason     TransportReason // only meaningful for TransportFailure
	Err        error           // underlying cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed
func (e *Error) Retryable() bool {
	return e.Kind == ServerError || e.Kind == TransportFailure
}

// DisplayText is the short message shown on the kiosk display
func (e *Error) DisplayText() string {
	switch e.Kind {
	case InvalidIdentifier:
		return "Invalid UPID"
	case NotFound:
		return "UPID not found"
	case Unauthorized:
		return "Unauthorized"
	case ServerError:
		return fmt.Sprintf("Server error: %d", e.StatusCode)
	case TransportFailure:
		return "Connection failed"
	case MalformedResponse:
		return "Invalid response"
	default:
		return "Error"
	}
}

// IsRetryable checks if err is a retryable *Error
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// KindOf returns the kind of err and whether err is an *Error
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// classifyStatus maps a non-200 status code to an error
func classifyStatus(code int) *Error {
	switch code {
	case http.StatusBadRequest:
		return &Error{Kind: InvalidIdentifier, StatusCode: code}
	case http.StatusUnauthorized:
		return &Error{Kind: Unauthorized, StatusCode: code}
	case http.StatusNotFound:
		return &Error{Kind: NotFound, StatusCode: code}
	default:
		return &Error{Kind: ServerError, StatusCode: code}
	}
}

// classifyTransport turns a transport error into a TransportFailure with
// the most specific reason available
func classifyTransport(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: TransportFailure, Reason: transportReason(err), Err: err}
}

func transportReason(err error) TransportReason {
	if os.IsTimeout(err) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return ReasonConnectionRefused
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return ReasonHostUnreachable
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return ReasonNetworkUnreachable
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return transportReason(urlErr.Err)
	}

	return ReasonGeneral
}

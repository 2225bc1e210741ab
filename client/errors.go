package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind string

// Failure kinds. Only KindConnectivity is ever retried.
const (
	KindConnectivity Kind = "connectivity"
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindUnknown      Kind = "unknown"
)

// User-facing fallback messages.
const (
	MessageServerError  = "Internal server error. Please try again later."
	MessageForbidden    = "You do not have permission to perform this action."
	MessageNotFound     = "The requested resource was not found."
	MessageNetwork      = "Network error. Please check your connection."
	MessageGeneric      = "Something went wrong"
	MessageUnauthorized = "Your session has expired. Please log in again."
)

// Error is the normalized failure returned by every pipeline verb.
type Error struct {
	Kind      Kind
	Method    string
	URL       string
	RequestID string

	// HTTPStatus is the transport status, 0 when no response was received.
	HTTPStatus int
	// StatusCode is the envelope statusCode, 0 when the body was not an envelope.
	StatusCode int
	// Message is the user-facing text.
	Message string
	// Body is the raw response body, kept so forms can map validation details.
	Body []byte

	Cause error

	// reported is set once the failure went through the notification funnel
	// (shown, suppressed or deliberately silent).
	reported bool
}

func (e *Error) Error() string {
	status := e.HTTPStatus
	if e.StatusCode != 0 {
		status = e.StatusCode
	}
	if status == 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s (%d): %s", e.Method, e.URL, e.Kind, status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Reported reports whether the failure has already been through the
// notification funnel.
func (e *Error) Reported() bool {
	return e.reported
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func isKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

// IsConnectivity reports whether err is a failure with no HTTP response.
func IsConnectivity(err error) bool { return isKind(err, KindConnectivity) }

// IsValidation reports whether err is a 422 validation failure.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsServer reports whether err is a 500 server failure.
func IsServer(err error) bool { return isKind(err, KindServer) }

// IsUnauthorized reports whether err is a 401 failure.
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }

// IsNotFound reports whether err is a 404 failure.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// kindForStatus maps a status code (HTTP or envelope) onto a Kind.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusInternalServerError:
		return KindServer
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnknown
	}
}

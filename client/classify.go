package client

import (
	"net/http"
	"strings"

	"github.com/c360studio/pgrooms/envelope"
)

// outcome is the classification of one HTTP exchange. A nil err means the
// response passes through to the caller.
type outcome struct {
	err *Error
	// notify asks for one notification through the funnel.
	notify bool
	// unauthorized asks for the credential to be cleared and the
	// unauthorized handler to run.
	unauthorized bool
}

// classifyResponse applies the interception rules to a received response.
// It has no side effects.
func classifyResponse(httpStatus int, body []byte) outcome {
	success := httpStatus >= 200 && httpStatus < 300

	if h, ok := envelope.Peek(body); ok {
		if success && envelope.IsSuccess(h.StatusCode) {
			return outcome{}
		}
		if httpStatus == http.StatusUnauthorized || h.StatusCode == http.StatusUnauthorized {
			return classifyUnauthorized(httpStatus, h.StatusCode, h.Message)
		}
		return classifyEnvelope(httpStatus, h)
	}

	if success {
		return outcome{}
	}
	return classifyStatus(httpStatus, bodyMessage(body))
}

// classifyEnvelope handles a failing envelope, regardless of the HTTP status
// that carried it.
func classifyEnvelope(httpStatus int, h envelope.Header) outcome {
	e := &Error{
		HTTPStatus: httpStatus,
		StatusCode: h.StatusCode,
		Message:    h.Message,
	}

	switch envelope.Classify(h.StatusCode) {
	case envelope.KindValidation:
		e.Kind = KindValidation
		return outcome{err: e}
	case envelope.KindServer:
		e.Kind = KindServer
		if e.Message == "" {
			e.Message = MessageServerError
		}
		return outcome{err: e, notify: true}
	default:
		// A 200 envelope on a failed HTTP exchange lands here as well.
		e.Kind = kindForStatus(h.StatusCode)
		if e.Message == "" {
			e.Message = MessageGeneric
		}
		return outcome{err: e, notify: true}
	}
}

// classifyStatus handles a failed HTTP exchange whose body is not an envelope.
func classifyStatus(httpStatus int, message string) outcome {
	e := &Error{
		Kind:       kindForStatus(httpStatus),
		HTTPStatus: httpStatus,
		Message:    message,
	}

	switch httpStatus {
	case http.StatusUnauthorized:
		return classifyUnauthorized(httpStatus, 0, message)
	case http.StatusForbidden:
		e.Message = MessageForbidden
	case http.StatusNotFound:
		e.Message = MessageNotFound
	case http.StatusUnprocessableEntity:
		return outcome{err: e}
	case http.StatusInternalServerError:
		e.Message = MessageServerError
	default:
		if e.Message == "" {
			e.Message = MessageGeneric
		}
	}
	return outcome{err: e, notify: true}
}

// classifyUnauthorized applies the 401 rules whether the 401 came from the
// HTTP status or from the envelope.
func classifyUnauthorized(httpStatus, statusCode int, message string) outcome {
	e := &Error{
		Kind:       KindUnauthorized,
		HTTPStatus: httpStatus,
		StatusCode: statusCode,
		Message:    message,
	}
	if isWrongPassword(message) {
		return outcome{err: e}
	}
	if e.Message == "" {
		e.Message = MessageUnauthorized
	}
	return outcome{err: e, unauthorized: true}
}

// connectivityFailure builds the error for an exchange that produced no
// response. Its notification is left to the pipeline once retries are spent.
func connectivityFailure(cause error) *Error {
	return &Error{
		Kind:    KindConnectivity,
		Message: MessageNetwork,
		Cause:   cause,
	}
}

// isWrongPassword reports whether a 401 message describes a bad password
// that the login form shows inline.
func isWrongPassword(message string) bool {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "password") {
		return false
	}
	return strings.Contains(lower, "wrong") ||
		strings.Contains(lower, "invalid") ||
		strings.Contains(lower, "incorrect")
}

// Package envelope defines the response envelope returned by every pgrooms API
// endpoint and the predicates used to classify it.
//
// Classification depends on StatusCode alone. A Response carrying Data with a
// non-200 status code is not a success.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Status codes carried inside the envelope body.
const (
	StatusSuccess    = 200
	StatusValidation = 422
	StatusServer     = 500
)

// Kind is the classification of an envelope.
type Kind string

// Envelope kinds. Exactly one applies to any status code.
const (
	KindSuccess    Kind = "success"
	KindValidation Kind = "validation_error"
	KindServer     Kind = "server_error"
	KindUnknown    Kind = "unknown_error"
)

// Response is the uniform API response wrapper.
type Response[T any] struct {
	StatusCode int    `json:"statusCode"`
	Data       T      `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Kind returns the classification of the response.
func (r *Response[T]) Kind() Kind {
	return Classify(r.StatusCode)
}

// IsSuccess reports whether the envelope status code is 200.
func IsSuccess(statusCode int) bool {
	return statusCode == StatusSuccess
}

// IsValidationError reports whether the envelope status code is 422.
func IsValidationError(statusCode int) bool {
	return statusCode == StatusValidation
}

// IsServerError reports whether the envelope status code is 500.
func IsServerError(statusCode int) bool {
	return statusCode == StatusServer
}

// Classify maps a status code onto its Kind.
func Classify(statusCode int) Kind {
	switch {
	case IsSuccess(statusCode):
		return KindSuccess
	case IsValidationError(statusCode):
		return KindValidation
	case IsServerError(statusCode):
		return KindServer
	default:
		return KindUnknown
	}
}

// Data returns the payload of a successful response. Any other classification
// yields an error carrying the envelope message.
func Data[T any](r *Response[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, fmt.Errorf("nil response")
	}
	if !IsSuccess(r.StatusCode) {
		msg := r.Message
		if msg == "" {
			msg = string(r.Kind())
		}
		return zero, fmt.Errorf("api status %d: %s", r.StatusCode, msg)
	}
	return r.Data, nil
}

// Header is the untyped part of an envelope, used by the transport to
// classify a body before the caller's data type is known.
type Header struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

// Peek reports whether body is envelope shaped and, if so, returns its header.
// A body is envelope shaped when it is a JSON object with a numeric statusCode.
func Peek(body []byte) (Header, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return Header{}, false
	}
	raw, ok := probe["statusCode"]
	if !ok {
		return Header{}, false
	}

	var h Header
	if err := json.Unmarshal(raw, &h.StatusCode); err != nil {
		return Header{}, false
	}
	if msg, ok := probe["message"]; ok {
		// Non-string messages are ignored rather than rejecting the envelope.
		_ = json.Unmarshal(msg, &h.Message)
	}
	return h, true
}

// Decode parses body into a typed envelope.
func Decode[T any](body []byte) (*Response[T], error) {
	var r Response[T]
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &r, nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/c360studio/pgrooms/credential"
	"github.com/c360studio/pgrooms/notify"
	"github.com/google/uuid"
)

// maxResponseSize limits the response body read into memory.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// RequestIDHeader carries the per-attempt correlation id.
const RequestIDHeader = "X-Request-ID"

// Result is a response that passed interception.
type Result struct {
	HTTPStatus int
	Header     http.Header
	Body       []byte
	URL        string
	RequestID  string
}

// UnauthorizedHandler runs after a 401 has cleared the stored credential.
type UnauthorizedHandler func(ctx context.Context, e *Error)

// Transport sends single attempts to the API. It attaches the bearer
// credential, classifies every response and reports server-returned failures
// through the funnel. It never retries.
type Transport struct {
	baseURL        string
	httpClient     *http.Client
	credentials    credential.Store
	funnel         *notify.Funnel
	onUnauthorized UnauthorizedHandler
	logger         *slog.Logger
}

// URL resolves path against the base URL. path may carry a query string.
func (t *Transport) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do performs one attempt. body, when non-nil, is sent as JSON.
func (t *Transport) Do(ctx context.Context, method, path string, body any) (*Result, error) {
	fullURL := t.URL(path)
	requestID := uuid.New().String()

	fail := func(e *Error) *Error {
		e.Method = method
		e.URL = fullURL
		e.RequestID = requestID
		return e
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fail(&Error{Kind: KindUnknown, Message: MessageGeneric, Cause: fmt.Errorf("encode request body: %w", err)})
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fail(&Error{Kind: KindUnknown, Message: MessageGeneric, Cause: fmt.Errorf("create HTTP request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.authorize(req)

	t.logger.Debug("Sending API request",
		"method", method,
		"url", fullURL,
		"request_id", requestID)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fail(connectivityFailure(fmt.Errorf("HTTP request failed: %w", err)))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		// The attempt timed out or was canceled before the body was complete,
		// so there is no response.
		if isTimeout(err) || errors.Is(err, context.Canceled) {
			return nil, fail(connectivityFailure(fmt.Errorf("read response body: %w", err)))
		}
		e := fail(&Error{
			Kind:       KindUnknown,
			HTTPStatus: resp.StatusCode,
			Message:    MessageNetwork,
			Cause:      fmt.Errorf("read response body: %w", err),
		})
		t.apply(ctx, outcome{err: e, notify: true})
		return nil, e
	}

	out := classifyResponse(resp.StatusCode, respBody)
	if out.err == nil {
		return &Result{
			HTTPStatus: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
			URL:        fullURL,
			RequestID:  requestID,
		}, nil
	}

	out.err.Body = respBody
	fail(out.err)
	t.apply(ctx, out)
	return nil, out.err
}

// isTimeout reports whether err is an attempt deadline rather than a broken body.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// authorize attaches the stored bearer token, if any.
func (t *Transport) authorize(req *http.Request) {
	if t.credentials == nil {
		return
	}
	token, err := t.credentials.Get()
	if err != nil {
		t.logger.Warn("Failed to read stored credential, sending unauthenticated", "error", err)
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// apply performs the side effects of a failed outcome and marks the error
// as reported.
func (t *Transport) apply(ctx context.Context, out outcome) {
	e := out.err
	e.reported = true

	if out.unauthorized {
		if t.credentials != nil {
			if err := t.credentials.Clear(); err != nil {
				t.logger.Warn("Failed to clear stored credential", "error", err)
			}
		}
		t.logger.Info("Unauthorized response, credential cleared",
			"url", e.URL,
			"request_id", e.RequestID)
		if t.onUnauthorized != nil {
			t.onUnauthorized(ctx, e)
		}
		return
	}

	if out.notify {
		t.funnel.Report(ctx, notificationFor(e))
		return
	}

	t.logger.Debug("API failure left to caller",
		"url", e.URL,
		"kind", e.Kind,
		"message", e.Message)
}

func notificationFor(e *Error) notify.Notification {
	status := e.HTTPStatus
	if e.StatusCode != 0 {
		status = e.StatusCode
	}
	return notify.Notification{
		Level:     notify.LevelError,
		Message:   e.Message,
		URL:       e.URL,
		Method:    e.Method,
		Status:    status,
		RequestID: e.RequestID,
	}
}

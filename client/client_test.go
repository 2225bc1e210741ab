package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/credential"
	"github.com/c360studio/pgrooms/envelope"
	"github.com/c360studio/pgrooms/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type property struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// roundTripFunc fakes the network for connectivity tests.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// sleepRecorder records backoff waits without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newClient(t *testing.T, baseURL string, opts ...client.Option) (*client.Client, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	all := append([]client.Option{
		client.WithFunnel(notify.NewFunnel(rec)),
		client.WithSleeper((&sleepRecorder{}).sleep),
	}, opts...)
	c, err := client.New(baseURL, all...)
	require.NoError(t, err)
	return c, rec
}

func envelopeServer(t *testing.T, httpStatus int, body string, attempts *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts != nil {
			attempts.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingTransport(attempts *atomic.Int32) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		attempts.Add(1)
		return nil, errors.New("dial tcp: i/o timeout")
	})}
}

func TestGet_Success(t *testing.T) {
	var attempts atomic.Int32
	var gotPath, gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(client.RequestIDHeader)
		_, _ = io.WriteString(w, `{"statusCode":200,"data":{"id":7,"name":"Sunrise PG"}}`)
	}))
	defer srv.Close()

	c, rec := newClient(t, srv.URL, client.WithCredentials(credential.NewMemoryStore("tok-123")))

	resp, err := client.Get[property](context.Background(), c, "/pgrooms/v1/property/7")
	require.NoError(t, err)

	data, err := envelope.Data(resp)
	require.NoError(t, err)
	assert.Equal(t, property{ID: 7, Name: "Sunrise PG"}, data)
	assert.Equal(t, "/pgrooms/v1/property/7", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, 0, rec.Len())
}

func TestRequest_NoCredentialOmitsAuthorization(t *testing.T) {
	var hasAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		hasAuth.Store(present)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token missing"}`)
	}))
	defer srv.Close()

	store := credential.NewMemoryStore("")
	var handled atomic.Int32
	c, rec := newClient(t, srv.URL,
		client.WithCredentials(store),
		client.WithUnauthorizedHandler(func(context.Context, *client.Error) { handled.Add(1) }))

	_, err := client.Get[property](context.Background(), c, "/pgrooms/v1/user/profile")
	require.Error(t, err)
	assert.False(t, hasAuth.Load(), "Authorization header must be omitted without a token")
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, 0, rec.Len())
}

func TestPost_ValidationErrorIsSilent(t *testing.T) {
	for _, httpStatus := range []int{http.StatusOK, http.StatusUnprocessableEntity} {
		var attempts atomic.Int32
		srv := envelopeServer(t, httpStatus, `{"statusCode":422,"message":"Email already exist"}`, &attempts)
		c, rec := newClient(t, srv.URL)

		_, err := client.Post[property](context.Background(), c, "/pgrooms/v1/tenant", map[string]string{"email": "a@b.c"})
		require.Error(t, err)

		apiErr, ok := client.AsError(err)
		require.True(t, ok)
		assert.Equal(t, client.KindValidation, apiErr.Kind)
		assert.Equal(t, "Email already exist", apiErr.Message)
		assert.Equal(t, 422, apiErr.StatusCode)
		assert.True(t, apiErr.Reported())
		assert.JSONEq(t, `{"statusCode":422,"message":"Email already exist"}`, string(apiErr.Body))
		assert.Equal(t, int32(1), attempts.Load())
		assert.Equal(t, 0, rec.Len(), "validation errors never notify (HTTP %d)", httpStatus)
	}
}

func TestValidation_PlainHTTP422IsSilent(t *testing.T) {
	srv := envelopeServer(t, http.StatusUnprocessableEntity, `{"errors":{"email":"taken"}}`, nil)
	c, rec := newClient(t, srv.URL)

	_, err := client.Post[property](context.Background(), c, "/pgrooms/v1/tenant", nil)
	require.Error(t, err)
	assert.True(t, client.IsValidation(err))
	assert.Equal(t, 0, rec.Len())
}

func TestPut_ServerErrorNotifiesOnce(t *testing.T) {
	var attempts atomic.Int32
	srv := envelopeServer(t, http.StatusInternalServerError, `{"statusCode":500,"message":"DB unreachable"}`, &attempts)
	c, rec := newClient(t, srv.URL)

	_, err := client.Put[any](context.Background(), c, "/pgrooms/v1/admin/owner/status", map[string]any{"ownerId": 3, "status": "inactive"})
	require.Error(t, err)
	assert.True(t, client.IsServer(err))
	assert.Equal(t, int32(1), attempts.Load())

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, "DB unreachable", got[0].Message)
	assert.Equal(t, 500, got[0].Status)
	assert.Equal(t, http.MethodPut, got[0].Method)
}

func TestServerError_EnvelopeInSuccessfulResponse(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"statusCode":500}`, nil)
	c, rec := newClient(t, srv.URL)

	_, err := client.Get[any](context.Background(), c, "/pgrooms/v1/payment/stats")
	require.Error(t, err)

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, client.MessageServerError, got[0].Message)
}

func TestConnectivity_RetriesTwiceWithBackoff(t *testing.T) {
	var attempts atomic.Int32
	sleeper := &sleepRecorder{}
	c, rec := newClient(t, "http://api.invalid",
		client.WithHTTPClient(failingTransport(&attempts)),
		client.WithSleeper(sleeper.sleep))

	_, err := client.Get[property](context.Background(), c, "/pgrooms/v1/property")
	require.Error(t, err)
	assert.True(t, client.IsConnectivity(err))
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Delays())

	got := rec.Notifications()
	require.Len(t, got, 1, "one notification once retries are exhausted")
	assert.Equal(t, client.MessageNetwork, got[0].Message)
}

func TestConnectivity_TimeoutWhileReadingBodyIsRetried(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"statusCode":200,"data":`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	sleeper := &sleepRecorder{}
	c, rec := newClient(t, srv.URL,
		client.WithTimeout(150*time.Millisecond),
		client.WithSleeper(sleeper.sleep))

	_, err := client.Get[property](context.Background(), c, "/pgrooms/v1/property")
	require.Error(t, err)
	assert.True(t, client.IsConnectivity(err))
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Delays())

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, client.MessageNetwork, got[0].Message)
}

func TestConnectivity_RoomDetailsNeverNotifies(t *testing.T) {
	var attempts atomic.Int32
	sleeper := &sleepRecorder{}
	c, rec := newClient(t, "http://api.invalid",
		client.WithHTTPClient(failingTransport(&attempts)),
		client.WithSleeper(sleeper.sleep))

	_, err := client.Get[any](context.Background(), c, "/pgrooms/v1/tenant/room-details")
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Len(t, sleeper.Delays(), 2)
	assert.Equal(t, 0, rec.Len())
}

func TestConnectivity_RecoversOnRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := envelopeServer(t, http.StatusOK, `{"statusCode":200,"data":{"id":1}}`, nil)
	base := srv.Client().Transport

	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return base.RoundTrip(r)
	})}
	c, rec := newClient(t, srv.URL, client.WithHTTPClient(httpClient))

	resp, err := client.Get[property](context.Background(), c, "/pgrooms/v1/property/1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Data.ID)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 0, rec.Len())
}

func TestServerResponses_AreNeverRetried(t *testing.T) {
	cases := []struct {
		httpStatus int
		body       string
	}{
		{http.StatusOK, `{"statusCode":500,"message":"boom"}`},
		{http.StatusOK, `{"statusCode":404,"message":"missing"}`},
		{http.StatusNotFound, `not found`},
		{http.StatusInternalServerError, `{"statusCode":500}`},
		{http.StatusBadGateway, `<html><head><title>502 Bad Gateway</title></head></html>`},
		{http.StatusServiceUnavailable, ``},
		{http.StatusUnprocessableEntity, `{"statusCode":422}`},
		{http.StatusForbidden, `{}`},
	}
	for _, tc := range cases {
		var attempts atomic.Int32
		srv := envelopeServer(t, tc.httpStatus, tc.body, &attempts)
		sleeper := &sleepRecorder{}
		c, _ := newClient(t, srv.URL, client.WithSleeper(sleeper.sleep))

		_, err := client.Post[any](context.Background(), c, "/pgrooms/v1/payment/create-order", map[string]int{"amount": 5000})
		require.Error(t, err, "HTTP %d", tc.httpStatus)
		assert.Equal(t, int32(1), attempts.Load(), "HTTP %d %s", tc.httpStatus, tc.body)
		assert.Empty(t, sleeper.Delays())
	}
}

func TestStatusMessages(t *testing.T) {
	cases := []struct {
		name       string
		httpStatus int
		body       string
		path       string
		wantKind   client.Kind
		wantNotify string // empty means no notification
	}{
		{"forbidden", http.StatusForbidden, `{"message":"nope"}`, "/pgrooms/v1/admin/owners", client.KindForbidden, client.MessageForbidden},
		{"not found", http.StatusNotFound, ``, "/pgrooms/v1/property/99", client.KindNotFound, client.MessageNotFound},
		{"not found on room details", http.StatusNotFound, ``, "/pgrooms/v1/tenant/room-details", client.KindNotFound, ""},
		{"server error", http.StatusInternalServerError, `oops`, "/pgrooms/v1/room", client.KindServer, client.MessageServerError},
		{"server error on room details", http.StatusInternalServerError, ``, "/pgrooms/v1/tenant/room-details", client.KindServer, ""},
		{"other with message", http.StatusConflict, `{"message":"Room is full"}`, "/pgrooms/v1/tenant/assign-room", client.KindUnknown, "Room is full"},
		{"other suppressed by message", http.StatusConflict, `{"message":"Room assignment not found"}`, "/pgrooms/v1/tenant", client.KindUnknown, ""},
		{"other without message", http.StatusTeapot, ``, "/pgrooms/v1/tenant", client.KindUnknown, client.MessageGeneric},
		{"html error page", http.StatusBadGateway, `<html><head><title>502 Bad Gateway</title></head><body>nginx</body></html>`, "/pgrooms/v1/tenant", client.KindUnknown, "502 Bad Gateway"},
		{"envelope 404 in 200", http.StatusOK, `{"statusCode":404,"message":"Property missing"}`, "/pgrooms/v1/property/5", client.KindNotFound, "Property missing"},
		{"envelope unknown without message", http.StatusOK, `{"statusCode":409}`, "/pgrooms/v1/property/5", client.KindUnknown, client.MessageGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := envelopeServer(t, tc.httpStatus, tc.body, nil)
			c, rec := newClient(t, srv.URL)

			_, err := client.Get[any](context.Background(), c, tc.path)
			require.Error(t, err)

			apiErr, ok := client.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, apiErr.Kind)
			assert.Equal(t, tc.httpStatus, apiErr.HTTPStatus)

			if tc.wantNotify == "" {
				assert.Equal(t, 0, rec.Len())
				return
			}
			got := rec.Notifications()
			require.Len(t, got, 1)
			assert.Equal(t, tc.wantNotify, got[0].Message)
		})
	}
}

func TestUnauthorized_ClearsCredential(t *testing.T) {
	srv := envelopeServer(t, http.StatusUnauthorized, `{"message":"jwt expired"}`, nil)
	store := credential.NewMemoryStore("stale-token")

	var handledURL string
	c, rec := newClient(t, srv.URL,
		client.WithCredentials(store),
		client.WithUnauthorizedHandler(func(_ context.Context, e *client.Error) { handledURL = e.URL }))

	_, err := client.Get[any](context.Background(), c, "/pgrooms/v1/property")
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	token, _ := store.Get()
	assert.Empty(t, token)
	assert.Equal(t, srv.URL+"/pgrooms/v1/property", handledURL)
	assert.Equal(t, 0, rec.Len())
}

func TestUnauthorized_WrongPasswordLeftToCaller(t *testing.T) {
	srv := envelopeServer(t, http.StatusUnauthorized, `{"message":"Invalid password"}`, nil)
	store := credential.NewMemoryStore("keep-me")

	var handled atomic.Int32
	c, rec := newClient(t, srv.URL,
		client.WithCredentials(store),
		client.WithUnauthorizedHandler(func(context.Context, *client.Error) { handled.Add(1) }))

	_, err := client.Post[any](context.Background(), c, "/pgrooms/v1/auth/login", map[string]string{"email": "a@b.c", "password": "x"})
	require.Error(t, err)

	apiErr, ok := client.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid password", apiErr.Message)

	token, _ := store.Get()
	assert.Equal(t, "keep-me", token)
	assert.Equal(t, int32(0), handled.Load())
	assert.Equal(t, 0, rec.Len())
}

func TestUnauthorized_EnvelopeBody(t *testing.T) {
	t.Run("expired session clears credential", func(t *testing.T) {
		srv := envelopeServer(t, http.StatusUnauthorized, `{"statusCode":401,"message":"jwt expired"}`, nil)
		store := credential.NewMemoryStore("stale")

		var handled atomic.Int32
		c, rec := newClient(t, srv.URL,
			client.WithCredentials(store),
			client.WithUnauthorizedHandler(func(context.Context, *client.Error) { handled.Add(1) }))

		_, err := client.Get[any](context.Background(), c, "/pgrooms/v1/property")
		require.Error(t, err)
		assert.True(t, client.IsUnauthorized(err))

		token, _ := store.Get()
		assert.Empty(t, token)
		assert.Equal(t, int32(1), handled.Load())
		assert.Equal(t, 0, rec.Len())
	})

	t.Run("wrong password is left to caller", func(t *testing.T) {
		srv := envelopeServer(t, http.StatusUnauthorized, `{"statusCode":401,"message":"Invalid password"}`, nil)
		store := credential.NewMemoryStore("keep")

		var handled atomic.Int32
		c, rec := newClient(t, srv.URL,
			client.WithCredentials(store),
			client.WithUnauthorizedHandler(func(context.Context, *client.Error) { handled.Add(1) }))

		_, err := client.Post[any](context.Background(), c, "/pgrooms/v1/auth/login", map[string]string{"email": "a@b.c", "password": "x"})
		require.Error(t, err)
		assert.True(t, client.IsUnauthorized(err))

		token, _ := store.Get()
		assert.Equal(t, "keep", token)
		assert.Equal(t, int32(0), handled.Load())
		assert.Equal(t, 0, rec.Len())
	})
}

func TestNonEnvelopeSuccessPassesThrough(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"data":{"id":3}}`, nil)
	c, rec := newClient(t, srv.URL)

	resp, err := client.Get[property](context.Background(), c, "/pgrooms/v1/location/states")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StatusCode)
	assert.Equal(t, envelope.KindUnknown, resp.Kind())
	assert.Equal(t, 0, rec.Len())

	_, err = envelope.Data(resp)
	assert.Error(t, err, "data without a 200 statusCode is not a success")
}

func TestEmptySuccessBody(t *testing.T) {
	srv := envelopeServer(t, http.StatusNoContent, ``, nil)
	c, _ := newClient(t, srv.URL)

	resp, err := client.Delete[any](context.Background(), c, "/pgrooms/v1/room/4")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StatusCode)
}

func TestMalformedSuccessBodyReportsOnce(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `definitely not json`, nil)
	c, rec := newClient(t, srv.URL)

	_, err := client.Get[property](context.Background(), c, "/pgrooms/v1/property/1")
	require.Error(t, err)

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, client.MessageGeneric, got[0].Message)
}

func TestCancelDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	c, rec := newClient(t, "http://api.invalid",
		client.WithHTTPClient(failingTransport(&attempts)),
		client.WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}))

	_, err := client.Patch[any](ctx, c, "/pgrooms/v1/property/1/status", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, 0, rec.Len())
}

func TestConcurrentRequestsKeepIndependentRetryState(t *testing.T) {
	var attempts atomic.Int32
	c, rec := newClient(t, "http://api.invalid", client.WithHTTPClient(failingTransport(&attempts)))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Post[any](context.Background(), c, "/pgrooms/v1/payment/create-order", map[string]int{"amount": 100})
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(15), attempts.Load())
	assert.Equal(t, 5, rec.Len())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := client.NewMetrics(reg)

	var attempts atomic.Int32
	c, _ := newClient(t, "http://api.invalid",
		client.WithHTTPClient(failingTransport(&attempts)),
		client.WithMetrics(metrics))

	_, err := client.Get[any](context.Background(), c, "/pgrooms/v1/property")
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Retries(http.MethodGet)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests(http.MethodGet, string(client.KindConnectivity))))

	srv := envelopeServer(t, http.StatusOK, `{"statusCode":200,"data":null}`, nil)
	c2, _ := newClient(t, srv.URL, client.WithMetrics(metrics))
	_, err = client.Get[any](context.Background(), c2, "/pgrooms/v1/property")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests(http.MethodGet, "success")))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := client.New("ftp://example.com")
	assert.Error(t, err)

	_, err = client.New("://bad")
	assert.Error(t, err)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := client.DefaultRetryConfig()
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Backoff(1))
	assert.Equal(t, 4*time.Second, cfg.Backoff(2))
}

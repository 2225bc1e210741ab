// Package main implements a mock pgrooms API server for end-to-end testing.
// It serves envelope responses from JSON fixture files laid out by method and
// path, so the CLI and pipeline can be exercised offline and deterministically.
//
// Usage:
//
//	mock-api --fixtures /path/to/fixtures --port 3000
//
// A fixture for GET /pgrooms/v1/property/7 lives at
// "GET/pgrooms/v1/property/7.json". Its content is returned as the body with
// HTTP 200. To control the transport, wrap the body:
//
//	{"status": 500, "delay": "3s", "response": {"statusCode": 500, "message": "DB down"}}
//	{"drop": true}
//
// "drop" closes the connection without a response, which the client sees as
// a connectivity failure.
//
// Sequential fixtures: numbered files ("7.1.json", "7.2.json") are served on
// the Nth call to that route. After they are exhausted, the base file
// ("7.json") repeats, or the last numbered file when there is no base.
//
// Any file name ending in ".<digits>.json" is read as a sequence file, so a
// route whose last segment itself ends in ".<digits>" (for example
// GET /api/v1.2) cannot have a base fixture. Give it numbered files only:
// "GET/api/v1.2.1.json" serves GET /api/v1.2 on every call.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

// fixture is one canned response.
type fixture struct {
	Status   int
	Delay    time.Duration
	Drop     bool
	Response json.RawMessage
}

type fixtureWrapper struct {
	Status   int             `json:"status"`
	Delay    string          `json:"delay"`
	Drop     bool            `json:"drop"`
	Response json.RawMessage `json:"response"`
}

// parseFixture reads a fixture file body. Objects with a "response" or "drop"
// key are transport wrappers; anything else is the literal response body.
func parseFixture(data []byte) (fixture, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		_, hasResponse := probe["response"]
		_, hasDrop := probe["drop"]
		if hasResponse || hasDrop {
			var w fixtureWrapper
			if err := json.Unmarshal(data, &w); err != nil {
				return fixture{}, err
			}
			f := fixture{Status: w.Status, Drop: w.Drop, Response: w.Response}
			if w.Delay != "" {
				d, err := time.ParseDuration(w.Delay)
				if err != nil {
					return fixture{}, fmt.Errorf("invalid delay %q: %w", w.Delay, err)
				}
				f.Delay = d
			}
			if f.Status == 0 {
				f.Status = http.StatusOK
			}
			return f, nil
		}
	}
	return fixture{Status: http.StatusOK, Response: json.RawMessage(data)}, nil
}

// capturedRequest stores the parts of an incoming request tests assert on.
type capturedRequest struct {
	Route         string          `json:"route"`
	Query         string          `json:"query,omitempty"`
	Authorization string          `json:"authorization,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	ContentType   string          `json:"content_type,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
	CallIndex     int             `json:"call_index"` // 1-indexed per-route call number
	Timestamp     int64           `json:"timestamp"`
}

type server struct {
	fixtures map[string][]fixture // "METHOD /path" → ordered fixtures
	calls    atomic.Int64
	logger   *slog.Logger

	routeCalls   map[string]*atomic.Int64
	routeCallsMu sync.Mutex

	requests   map[string][]capturedRequest
	requestsMu sync.Mutex
}

func newServer(fixtures map[string][]fixture, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	return &server{
		fixtures:   fixtures,
		logger:     logger,
		routeCalls: make(map[string]*atomic.Int64),
		requests:   make(map[string][]capturedRequest),
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)
	mux.HandleFunc("/", s.handleAPI)
	return mux
}

func (s *server) routeCounter(route string) *atomic.Int64 {
	s.routeCallsMu.Lock()
	defer s.routeCallsMu.Unlock()
	if c, ok := s.routeCalls[route]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.routeCalls[route] = c
	return c
}

func (s *server) capture(r *http.Request, route string, body []byte, callIndex int) {
	c := capturedRequest{
		Route:         route,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		ContentType:   r.Header.Get("Content-Type"),
		CallIndex:     callIndex,
		Timestamp:     time.Now().UnixMilli(),
	}
	if len(body) > 0 && json.Valid(body) {
		c.Body = json.RawMessage(body)
	}

	s.requestsMu.Lock()
	defer s.requestsMu.Unlock()
	s.requests[route] = append(s.requests[route], c)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		port       int
	)

	cmd := &cobra.Command{
		Use:          "mock-api",
		Short:        "Serve pgrooms API fixtures for testing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envDir := os.Getenv("MOCK_API_FIXTURES"); envDir != "" && fixtureDir == "" {
				fixtureDir = envDir
			}
			if fixtureDir == "" {
				fixtureDir = "/fixtures"
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			logger.Info("Loaded fixtures", "routes", len(fixtures), "dir", fixtureDir)
			for route, seq := range fixtures {
				logger.Debug("Fixture route", "route", route, "fixtures", len(seq))
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           newServer(fixtures, logger).handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			logger.Info("Mock API server listening", "addr", srv.Addr)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "directory containing fixture response files")
	cmd.Flags().IntVar(&port, "port", 3000, "port to listen on")
	return cmd
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleAPI(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	callNum := s.calls.Add(1)
	body, _ := io.ReadAll(r.Body)

	seq, ok := s.fixtures[route]
	if !ok {
		s.logger.Warn("No fixture for route", "call", callNum, "route", route)
		s.capture(r, route, body, int(s.routeCounter(route).Add(1)))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"statusCode":404,"message":%q}`, "no fixture for "+route)
		return
	}

	callIndex := int(s.routeCounter(route).Add(1) - 1)
	s.capture(r, route, body, callIndex+1)

	f := seq[len(seq)-1]
	if callIndex < len(seq) {
		f = seq[callIndex]
	}
	s.logger.Debug("Serving fixture", "call", callNum, "route", route, "call_index", callIndex+1, "of", len(seq))

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if f.Drop {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		panic(http.ErrAbortHandler)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.Status)
	_, _ = w.Write(f.Response)
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.routeCallsMu.Lock()
	byRoute := make(map[string]int64, len(s.routeCalls))
	for route, counter := range s.routeCalls {
		byRoute[route] = counter.Load()
	}
	s.routeCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_route": byRoute,
	})
}

// handleRequests returns captured requests.
// Query params:
//   - route: "METHOD /path" filter (optional)
//   - call: 1-indexed call filter (optional)
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	routeFilter := r.URL.Query().Get("route")
	callFilter, callErr := strconv.Atoi(r.URL.Query().Get("call"))

	s.requestsMu.Lock()
	result := make(map[string][]capturedRequest)
	for route, reqs := range s.requests {
		if routeFilter != "" && route != routeFilter {
			continue
		}
		for _, req := range reqs {
			if callErr == nil && req.CallIndex != callFilter {
				continue
			}
			result[route] = append(result[route], req)
		}
	}
	s.requestsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requests_by_route": result,
	})
}

// numberedFileRe matches "7.1.json", "login.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

var methods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// loadFixtures reads fixture files under dir/<METHOD>/ and returns a map of
// route to fixture sequence. Numbered files come first in numeric order,
// followed by the base file as the repeating fallback.
func loadFixtures(dir string) (map[string][]fixture, error) {
	baseFiles := make(map[string]fixture)
	numberedFiles := make(map[string]map[int]fixture)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		method, rest, ok := strings.Cut(rel, "/")
		if !ok || !methods[strings.ToUpper(method)] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}
		f, err := parseFixture(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		prefix := strings.ToUpper(method) + " /"
		if m := numberedFileRe.FindStringSubmatch(rest); m != nil {
			route := prefix + m[1]
			index, _ := strconv.Atoi(m[2])
			if numberedFiles[route] == nil {
				numberedFiles[route] = make(map[int]fixture)
			}
			numberedFiles[route][index] = f
			return nil
		}

		baseFiles[prefix+strings.TrimSuffix(rest, ".json")] = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]fixture)
	for route, numbered := range numberedFiles {
		indices := make([]int, 0, len(numbered))
		for idx := range numbered {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[route] = append(fixtures[route], numbered[idx])
		}
	}
	for route, base := range baseFiles {
		fixtures[route] = append(fixtures[route], base)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}

package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/loglens/loglens/internal/retry"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(ClientConfig{
		BaseURL:   serverURL,
		Org:       "acme",
		Project:   "storefront",
		AuthToken: "test-token",
		Timeout:   5 * time.Second,
		CacheSize: 10,
	}, prometheus.NewRegistry())

	// Collapse backoff so retry paths run instantly under test.
	c.retryCfg = retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
	return c
}

func TestFetchEventsSuccess(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"e1","title":"PaymentTokenExpiredError"}]`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	events, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)
	if err != nil {
		t.Fatalf("FetchEvents error: %v", err)
	}
	if len(events) != 1 || events[0].ID() != "e1" {
		t.Fatalf("events = %v", events)
	}

	if gotReq.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", gotReq.Method)
	}
	if want := "/api/0/projects/acme/storefront/events/"; gotReq.URL.Path != want {
		t.Errorf("path = %q, want %q", gotReq.URL.Path, want)
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("auth header = %q", got)
	}

	q := gotReq.URL.Query()
	if got := q.Get("query"); got != "user.id:cust-1" {
		t.Errorf("query param = %q", got)
	}
	if got := q.Get("start"); got != "2024-01-15T10:25:00Z" {
		t.Errorf("start = %q", got)
	}
	if got := q.Get("end"); got != "2024-01-15T10:35:00Z" {
		t.Errorf("end = %q", got)
	}
	if got := q.Get("full"); got != "true" {
		t.Errorf("full = %q", got)
	}
}

func TestFetchEventsCacheIdempotent(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`[{"id":"e1"}]`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	first, err := c.FetchEvents(ctx, "cust-1", "2024-01-15T10:30:00Z", 5)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.FetchEvents(ctx, "cust-1", "2024-01-15T10:30:00Z", 5)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
	if len(first) != len(second) || first[0].ID() != second[0].ID() {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}

	if got := testutil.ToFloat64(c.metrics.CacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.metrics.CacheMisses); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
}

func TestFetchEventsDistinctParamsMissCache(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	c.FetchEvents(ctx, "cust-1", "2024-01-15T10:30:00Z", 5)
	c.FetchEvents(ctx, "cust-2", "2024-01-15T10:30:00Z", 5)
	c.FetchEvents(ctx, "cust-1", "2024-01-15T10:31:00Z", 5)
	c.FetchEvents(ctx, "cust-1", "2024-01-15T10:30:00Z", 10)

	if n := requests.Load(); n != 4 {
		t.Errorf("upstream requests = %d, want 4 (all distinct keys)", n)
	}
}

func TestFetchEventsStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		wantKind   Kind
		wantMsg    string
		wantRetryA string
	}{
		{
			name:       "rate limited with hint",
			status:     http.StatusTooManyRequests,
			headers:    map[string]string{"Retry-After": "120"},
			wantKind:   KindRateLimit,
			wantMsg:    "Rate limit exceeded. Retry after 120 seconds.",
			wantRetryA: "120",
		},
		{
			name:       "rate limited without hint",
			status:     http.StatusTooManyRequests,
			wantKind:   KindRateLimit,
			wantMsg:    "Rate limit exceeded. Retry after 60 seconds.",
			wantRetryA: "60",
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			wantKind: KindAuth,
			wantMsg:  "Invalid or expired Sentry auth token",
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			wantKind: KindNotFound,
			wantMsg:  "Sentry project not found. Check org/project names.",
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			wantKind: KindUpstream,
			wantMsg:  "Sentry server error: 500",
		},
		{
			name:     "other client error",
			status:   http.StatusTeapot,
			wantKind: KindUpstream,
			wantMsg:  "Sentry API error: status 418",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := newTestClient(server.URL)

			_, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)
			if err == nil {
				t.Fatal("expected error")
			}

			var clientErr *Error
			if !errors.As(err, &clientErr) {
				t.Fatalf("error type %T, want *Error", err)
			}
			if clientErr.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", clientErr.Kind, tt.wantKind)
			}
			if clientErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", clientErr.Message, tt.wantMsg)
			}
			if clientErr.RetryAfter != tt.wantRetryA {
				t.Errorf("retryAfter = %q, want %q", clientErr.RetryAfter, tt.wantRetryA)
			}

			// Classified API errors are definitive: exactly one attempt.
			if n := requests.Load(); n != 1 {
				t.Errorf("upstream requests = %d, want 1 (no retry)", n)
			}
		})
	}
}

func TestFetchEventsTransportRetry(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Kill the connection before writing a response so the client
		// sees a transport error, not an HTTP status.
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		conn.Close()
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)
	if err == nil {
		t.Fatal("expected error after transport failures")
	}

	var clientErr *Error
	if !errors.As(err, &clientErr) {
		t.Fatalf("error type %T, want *Error", err)
	}
	if clientErr.Kind != KindUpstream {
		t.Errorf("kind = %v, want KindUpstream", clientErr.Kind)
	}

	if n := requests.Load(); n != 3 {
		t.Errorf("upstream requests = %d, want 3 (transport errors retried)", n)
	}
}

func TestFetchEventsInvalidTimestamp(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.FetchEvents(context.Background(), "cust-1", "not-a-timestamp", 5)

	var tsErr *InvalidTimestampError
	if !errors.As(err, &tsErr) {
		t.Fatalf("error = %v, want *InvalidTimestampError", err)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("upstream requests = %d, want 0", n)
	}
}

func TestFetchEventsSingleFlight(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[{"id":"e1"}]`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	const callers = 5
	var wg sync.WaitGroup
	wg.Add(callers)
	errs := make([]error, callers)
	counts := make([]int, callers)

	for i := 0; i < callers; i++ {
		go func(idx int) {
			defer wg.Done()
			events, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)
			errs[idx] = err
			counts[idx] = len(events)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if counts[i] != 1 {
			t.Errorf("caller %d got %d events, want 1", i, counts[i])
		}
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("upstream requests = %d, want 1 (single flight)", n)
	}
}

func TestFetchEventsNonListResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"unexpected shape"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	events, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)
	if err != nil {
		t.Fatalf("FetchEvents error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want empty", events)
	}
}

func TestFetchEventsInvalidJSONBody(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{truncated`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.FetchEvents(context.Background(), "cust-1", "2024-01-15T10:30:00Z", 5)

	var clientErr *Error
	if !errors.As(err, &clientErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if clientErr.Kind != KindUpstream {
		t.Errorf("kind = %v, want KindUpstream", clientErr.Kind)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("upstream requests = %d, want 1 (body faults are not retried)", n)
	}
}

package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jsamuelsen/contextify/internal/adapters/http/middleware"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
)

func defaultConfig() *Config {
	return &Config{
		ServiceName: "telegram",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
	}
}

// scripted answers with statuses in order, repeating the last one, and
// records every request body.
type scripted struct {
	mu       sync.Mutex
	statuses []int
	bodies   []string
	headers  []http.Header
}

func newScripted(t *testing.T, statuses ...int) (*scripted, *httptest.Server) {
	t.Helper()

	s := &scripted{statuses: statuses}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.bodies = append(s.bodies, string(body))
		s.headers = append(s.headers, r.Header.Clone())
		status := s.statuses[min(len(s.bodies), len(s.statuses))-1]
		s.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return s, server
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.bodies)
}

func newClient(t *testing.T, baseURL string, mutate func(*Config)) *Client {
	t.Helper()

	cfg := defaultConfig()
	cfg.BaseURL = baseURL
	if mutate != nil {
		mutate(cfg)
	}

	client, err := New(cfg)
	require.NoError(t, err)

	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "config is required"},
		{name: "missing service name", cfg: &Config{BaseURL: "https://api.telegram.org"}, wantErr: "service name is required"},
		{name: "zero values are defaulted", cfg: &Config{ServiceName: "telegram", BaseURL: "https://api.telegram.org/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "https://api.telegram.org", client.baseURL)
			assert.Equal(t, defaultTimeout, client.http.Timeout)
			assert.Equal(t, 1, client.retry.MaxAttempts)
		})
	}
}

// TestClient_RetryPolicy covers which responses are retried and what the
// caller sees once attempts run out.
func TestClient_RetryPolicy(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		attempts   int
		wantCalls  int
		wantStatus int
		wantErr    error
	}{
		{name: "success on first attempt", statuses: []int{200}, attempts: 3, wantCalls: 1, wantStatus: 200},
		{name: "recovers after server errors", statuses: []int{500, 502, 200}, attempts: 3, wantCalls: 3, wantStatus: 200},
		{name: "client errors are final", statuses: []int{400}, attempts: 3, wantCalls: 1, wantStatus: 400},
		{name: "rate limit is returned to the caller", statuses: []int{429}, attempts: 3, wantCalls: 1, wantStatus: 429},
		{name: "gives up after max attempts", statuses: []int{503}, attempts: 3, wantCalls: 3, wantErr: ErrMaxRetriesExceeded},
		{name: "single attempt", statuses: []int{503}, attempts: 1, wantCalls: 1, wantErr: ErrMaxRetriesExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, server := newScripted(t, tt.statuses...)
			client := newClient(t, server.URL, func(c *Config) { c.Retry.MaxAttempts = tt.attempts })

			resp, err := client.Get(context.Background(), "/getMe")

			assert.Equal(t, tt.wantCalls, srv.calls())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestClient_PostJSON(t *testing.T) {
	srv, server := newScripted(t, http.StatusBadGateway, http.StatusOK)
	client := newClient(t, server.URL, nil)

	ctx := middleware.ContextWithRequestID(context.Background(), "req-42")

	resp, err := client.PostJSON(ctx, "/sendMessage", map[string]string{"chat_id": "42", "text": "hello"})
	require.NoError(t, err)
	_ = resp.Body.Close()

	srv.mu.Lock()
	defer srv.mu.Unlock()

	require.Len(t, srv.bodies, 2)
	assert.JSONEq(t, `{"chat_id":"42","text":"hello"}`, srv.bodies[0])
	assert.Equal(t, srv.bodies[0], srv.bodies[1], "retried body must be replayed")

	for _, h := range srv.headers {
		assert.Equal(t, "application/json", h.Get("Content-Type"))
		assert.Equal(t, "req-42", h.Get(middleware.HeaderRequestID))
	}
}

func TestClient_PostJSONRejectsUnencodablePayload(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1", nil)

	_, err := client.PostJSON(context.Background(), "/sendMessage", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding request body")
}

func TestClient_BuildURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"https://api.telegram.org/bot123:abc", "/sendMessage", "https://api.telegram.org/bot123:abc/sendMessage"},
		{"https://api.telegram.org/bot123:abc", "sendMessage", "https://api.telegram.org/bot123:abc/sendMessage"},
		{"https://api.telegram.org/bot123:abc/", "/getMe", "https://api.telegram.org/bot123:abc/getMe"},
	}

	for _, tt := range tests {
		t.Run(tt.base+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, newClient(t, tt.base, nil).buildURL(tt.path))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	srv, server := newScripted(t, http.StatusServiceUnavailable)
	client := newClient(t, server.URL, func(c *Config) {
		c.Retry.MaxAttempts = 1
		c.Circuit.MaxFailures = 2
	})

	for range 2 {
		_, err := client.Get(context.Background(), "/getMe")
		require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	}
	assert.Equal(t, StateOpen, client.CircuitState())

	_, err := client.Get(context.Background(), "/getMe")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, srv.calls(), "open circuit must not reach the server")
}

func TestClient_Deadlines(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	t.Run("client timeout", func(t *testing.T) {
		client := newClient(t, server.URL, func(c *Config) {
			c.Timeout = 20 * time.Millisecond
			c.Retry.MaxAttempts = 1
		})

		_, err := client.Get(context.Background(), "/getMe")
		require.Error(t, err)
	})

	t.Run("context deadline", func(t *testing.T) {
		client := newClient(t, server.URL, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.Get(ctx, "/getMe")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestClient_TransportErrorsHideBaseURL(t *testing.T) {
	const secret = "bot123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	var logs bytes.Buffer
	ctx := logging.WithContext(context.Background(), slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	client := newClient(t, "http://127.0.0.1:1/"+secret, func(c *Config) { c.Retry.MaxAttempts = 2 })

	_, err := client.PostJSON(ctx, "/sendMessage", map[string]string{"text": "hi"})
	require.Error(t, err)

	var ue *url.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "/sendMessage", ue.URL)
	assert.True(t, isRetryableError(err), "stripping the URL keeps the network cause")

	assert.NotContains(t, err.Error(), secret)
	assert.NotContains(t, logs.String(), secret)
	assert.Contains(t, logs.String(), "request failed")
}

func TestWithoutBaseURL(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", cause, "connection reset"},
		{"url error", &url.Error{Op: "Get", URL: "https://api.telegram.org/bot1:x/getMe", Err: cause}, `Get "/getMe": connection reset`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withoutBaseURL(tt.err, "/getMe")
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}

			assert.EqualError(t, got, tt.want)
			assert.ErrorIs(t, got, cause)
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	client := newClient(t, "", func(c *Config) {
		c.Retry.InitialInterval = 100 * time.Millisecond
		c.Retry.Multiplier = 2.0
		c.Retry.MaxInterval = time.Second
	})

	assert.Equal(t, 100*time.Millisecond, client.calculateBackoff(0))
	assert.Equal(t, 400*time.Millisecond, client.calculateBackoff(2))
	assert.Equal(t, time.Second, client.calculateBackoff(10), "capped at max interval")

	client.retry.JitterFactor = 0.25
	for range 20 {
		got := client.calculateBackoff(1)
		assert.GreaterOrEqual(t, got, 150*time.Millisecond)
		assert.LessOrEqual(t, got, 250*time.Millisecond)
	}
}

// testNetError is a mock net.Error for testing.
type testNetError struct {
	timeout bool
}

func (e testNetError) Error() string   { return "test net error" }
func (e testNetError) Timeout() bool   { return e.timeout }
func (e testNetError) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline exceeded", context.DeadlineExceeded, false},
		{"net error with timeout", testNetError{timeout: true}, true},
		{"net error without timeout", testNetError{timeout: false}, false},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}

func TestClient_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	_, server := newScripted(t, http.StatusOK)
	client := newClient(t, server.URL, nil)

	const requests = 3
	for range requests {
		resp, err := client.Get(context.Background(), "/getMe")
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.client.request.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				result, _ := dp.Attributes.Value(attribute.Key("result"))
				assert.Equal(t, "2xx", result.AsString())
				total += dp.Value
			}
		}
	}

	assert.Equal(t, int64(requests), total)
}

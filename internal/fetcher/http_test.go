package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-report-cli/internal/config"
	"github.com/sells-group/market-report-cli/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		RatePerSec: 1000,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 10},
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>market report</html>"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/market-reports.html")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "<html>market report</html>", string(data))
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("STEERS"))
	}))
	defer srv.Close()

	data, err := newTestFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "STEERS", string(data))
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 report"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "temp.pdf")
	n, err := newTestFetcher().DownloadToFile(context.Background(), srv.URL+"/report.pdf", path)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report", string(data))
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, err := newTestFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Get(context.Background(), srv.URL+"/gone.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownload_RateLimitedSlowsHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownload_CircuitOpensForFailingHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher()
	f.breakers = resilience.NewHostBreakers(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})

	_, err := f.Get(context.Background(), srv.URL+"/a.pdf")
	require.Error(t, err)
	_, err = f.Get(context.Background(), srv.URL+"/b.pdf")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownload_BadURL(t *testing.T) {
	_, err := newTestFetcher().Get(context.Background(), "://bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse url")
}

func TestAdaptiveLimiter(t *testing.T) {
	a := NewAdaptiveLimiter(10, 1)

	a.OnRateLimit()
	assert.InDelta(t, 5, float64(a.Limit()), 0.001)
	a.OnRateLimit()
	a.OnRateLimit()
	assert.InDelta(t, 2.5, float64(a.Limit()), 0.001)

	for range 20 {
		a.OnSuccess()
	}
	assert.InDelta(t, 20, float64(a.Limit()), 0.001)
	assert.NoError(t, a.Wait(context.Background()))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.FetchConfig{UserAgent: "ua", TimeoutSecs: 30, MaxRetries: 2, RatePerSec: 1.5})

	assert.Equal(t, "ua", opts.UserAgent)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 3, opts.Retry.MaxAttempts)
	assert.Equal(t, rate.Limit(1.5), rate.Limit(opts.RatePerSec))
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "market-report/1.0", f.opts.UserAgent)
	assert.Equal(t, 60*time.Second, f.client.Timeout)
	assert.InDelta(t, 2, f.opts.RatePerSec, 0.001)
}

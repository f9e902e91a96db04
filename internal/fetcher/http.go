package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-report-cli/internal/config"
	"github.com/sells-group/market-report-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSec is the initial per-host request rate.
	RatePerSec float64
	Retry      resilience.RetryConfig
	Breaker    resilience.CircuitBreakerConfig
}

// OptionsFromConfig converts the fetch config section to HTTPOptions.
func OptionsFromConfig(cfg config.FetchConfig) HTTPOptions {
	return HTTPOptions{
		UserAgent:  cfg.UserAgent,
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		RatePerSec: cfg.RatePerSec,
		Retry:      resilience.FromMaxRetries(cfg.MaxRetries),
		Breaker:    resilience.DefaultCircuitBreakerConfig(),
	}
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.setRate(func(r rate.Limit) rate.Limit { return min(r*1.2, a.maxRate) })
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.setRate(func(r rate.Limit) rate.Limit { return max(r*0.5, a.minRate) })
}

func (a *AdaptiveLimiter) setRate(next func(rate.Limit) rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = next(a.currentRate)
	a.limiter.SetLimit(a.currentRate)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher with per-host rate limiting, retry of
// transient failures and a per-host circuit breaker.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	breakers *resilience.HostBreakers

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "market-report/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		breakers: resilience.NewHostBreakers(opts.Breaker),
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), 1)
		f.limiters[host] = lim
	}
	return lim
}

// do performs a GET with retry. The returned response has status 200.
func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	lim := f.limiterFor(u.Host)
	breaker := f.breakers.Get(u.Host)

	retry := f.opts.Retry
	retry.OnRetry = resilience.RetryLogger(u.Host, "download")

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*http.Response, error) {
			if err := lim.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetcher: rate limiter wait")
			}
			return f.attempt(ctx, lim, rawURL)
		})
	})
}

func (f *HTTPFetcher) attempt(ctx context.Context, lim *AdaptiveLimiter, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}

	if resp.StatusCode == http.StatusOK {
		lim.OnSuccess()
		return resp, nil
	}

	blocked, kind := sniffBlock(resp)
	_ = resp.Body.Close()
	if blocked {
		zap.L().Warn("request blocked",
			zap.String("component", "fetcher"),
			zap.String("url", rawURL),
			zap.String("block_type", string(kind)),
		)
		return nil, eris.Wrapf(ErrBlocked, "fetcher: http %d (%s) from %s", resp.StatusCode, kind, rawURL)
	}

	statusErr := eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL)
	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
		zap.L().Warn("rate limited (429), backing off",
			zap.String("component", "fetcher"),
			zap.String("url", rawURL),
			zap.Float64("new_rate", float64(lim.Limit())),
		)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
	}
	return nil, statusErr
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	return resp.Body, nil
}

// Get fetches the URL and returns the whole body.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body of %s", rawURL)
	}
	return data, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}

	return n, nil
}

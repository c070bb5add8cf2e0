package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDisallowed is returned for URLs excluded by the host's robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// FetchConfig configures a Fetcher
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes          int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	InsecureTLS       bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per host; 0 disables limiting
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// DefaultFetchConfig returns polite defaults
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:           30 * time.Second,
		UserAgent:         "tagex/0.1 (+https://github.com/ppiankov/tagex)",
		MaxBytes:          2_000_000,
		RespectRobots:     true,
		RequestsPerSecond: 2,
		Burst:             2,
	}
}

// Fetcher retrieves documents over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    *Limiter
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher. logger may be nil.
func NewFetcher(cfg FetchConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed hosts
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	return f
}

// FetchResult is a fetched response body with metadata
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Subject     string
}

// Fetch retrieves rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
		Subject:     extractSubject(finalURL),
	}, nil
}

// FetchWithRetry checks robots.txt, waits for the host's rate limit and
// retries transient failures up to three attempts with linear backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if f.robots != nil {
		allowed, delay := f.robots.CanFetch(ctx, parsed)
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 && f.limiter != nil {
			f.limiter.SetHostRate(parsed.Host, 1/delay.Seconds(), 1)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether err is worth another attempt:
// throttling, server errors and network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// extractSubject derives a readable name from the URL path
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}

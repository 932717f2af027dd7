// Package fetch retrieves remote disclosure documents over HTTP(S) and,
// for bot-protected sources, through a headless browser session.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "tasacol-aggregator/1.0 (+https://github.com/tasacol/hipotecas-compare)"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options controls a single Fetch call.
type Options struct {
	Retries             int
	Timeout             time.Duration
	Headers             map[string]string
	UseBrowserIdentity  bool // several banks block non-browser clients outright
	SkipTLSVerification bool // for sources with broken certificate chains only
}

// Result is the outcome of a successful fetch.
type Result struct {
	Bytes        []byte
	ContentType  string
	StatusCode   int
	LastModified string
	ETag         string
	ResolvedURL  string // differs from the requested URL after month fallback
	RetrievedAt  time.Time
}

// StatusError is a non-2xx response, surfaced so callers can branch on the
// status code (the month resolver falls back on 404 only).
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Fetcher retrieves documents with per-attempt timeouts, retry with
// exponential backoff, and polite request pacing. TLS bypass is call-scoped:
// an insecure call builds its own client, so there is no process-wide toggle
// and concurrent callers with different TLS needs never interfere.
type Fetcher struct {
	client         *http.Client
	insecureClient *http.Client
	limiter        *rate.Limiter
	retryDelay     time.Duration
	logger         *zap.Logger
}

func NewFetcher(timeout time.Duration, rps int, logger *zap.Logger) *Fetcher {
	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Fetcher{
		client:         &http.Client{Timeout: timeout},
		insecureClient: &http.Client{Timeout: timeout, Transport: insecureTransport},
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		retryDelay:     2 * time.Second,
		logger:         logger,
	}
}

// Fetch retrieves url, retrying opts.Retries additional times on any failure
// (timeout, transport error, non-2xx). Each failed attempt is logged; the
// last error is returned once attempts are exhausted.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*Result, error) {
	var lastErr error
	delay := f.retryDelay

	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("fetch attempt failed, retrying",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		res, err := f.fetchOnce(ctx, url, opts)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, opts.Retries+1, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, opts Options) (*Result, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	ua := defaultUserAgent
	if opts.UseBrowserIdentity {
		ua = browserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-CO,es;q=0.9,en;q=0.5")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := f.client
	if opts.SkipTLSVerification {
		client = f.insecureClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{
		Bytes:        body,
		ContentType:  resp.Header.Get("Content-Type"),
		StatusCode:   resp.StatusCode,
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		ResolvedURL:  url,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

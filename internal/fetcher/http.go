package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// NewHTTPClient builds the HTTP client shared by page and image requests:
// a pooled transport, the configured timeout and the redirect policy.
func NewHTTPClient(cfg config.FetcherConfig) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.MaxRedirects)
		}
		return nil
	}

	return &http.Client{
		Transport:     transport,
		Jar:           jar,
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy,
	}, nil
}

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client *http.Client
	cfg    config.FetcherConfig
	logger *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg config.FetcherConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	client, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewHTTPFetcherWithClient(client, cfg, logger), nil
}

// NewHTTPFetcherWithClient creates a fetcher around an existing client.
func NewHTTPFetcherWithClient(client *http.Client, cfg config.FetcherConfig, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "http_fetcher"),
	}
}

// Client returns the underlying HTTP client.
func (f *HTTPFetcher) Client() *http.Client { return f.client }

// Fetch issues a GET for rawURL and returns the decompressed body. Any
// non-2xx status is reported as a *types.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	httpReq.Header.Set("User-Agent", f.userAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{
			URL:       rawURL,
			Err:       err,
			Retryable: IsRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
			Retryable:  httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500,
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	decoded, err := decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(decoded)
	if closeErr := decoded.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if len(body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: types.ErrEmptyResponse}
	}

	resp := types.NewResponse(rawURL, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"final_url", resp.FinalURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) userAgent() string {
	if f.cfg.UserAgent == "" {
		return "catalogscout/" + config.Version
	}
	return f.cfg.UserAgent
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings. The caller must close
// the returned reader; closing it does not close the response body.
func decompressReader(resp *http.Response, reader io.Reader) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return io.NopCloser(brotli.NewReader(reader)), nil
	default:
		return io.NopCloser(reader), nil
	}
}

// IsRetryableError checks if a network error warrants a retry.
// Covers timeouts, connection resets, unexpected EOF, and connection refused.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// Cancellation of the caller's context is final
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

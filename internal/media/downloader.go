package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/fetcher"
	"github.com/IshaanNene/catalogscout/internal/parser"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// Downloader fetches product images into a local directory. A file that is
// already present is never fetched again, and concurrent requests for the
// same filename share one network call.
type Downloader struct {
	dir         string
	prefix      string
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxSize     int64
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger

	group singleflight.Group

	downloaded atomic.Int64
	cacheHits  atomic.Int64
	failed     atomic.Int64
	requests   atomic.Int64
}

// NewDownloader creates a Downloader writing into cfg.Dir. When client is nil
// one is built from fcfg.
func NewDownloader(cfg config.ImagesConfig, fcfg config.FetcherConfig, client *http.Client, logger *slog.Logger) (*Downloader, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "images", Err: err}
	}
	if client == nil {
		var err error
		client, err = fetcher.NewHTTPClient(fcfg)
		if err != nil {
			return nil, err
		}
	}

	return &Downloader{
		dir:         cfg.Dir,
		prefix:      cfg.PublicPrefix,
		client:      client,
		userAgent:   fcfg.UserAgent,
		timeout:     fcfg.Timeout,
		maxSize:     fcfg.MaxBodySize,
		maxAttempts: max(cfg.MaxAttempts, 1),
		retryDelay:  cfg.RetryDelay,
		logger:      logger.With("component", "image_downloader"),
	}, nil
}

// Download makes a single attempt to store rawURL as filename.
func (d *Downloader) Download(ctx context.Context, rawURL, filename string) (*types.DownloadedImage, error) {
	img, err := d.download(ctx, rawURL, filename)
	if err != nil {
		d.failed.Add(1)
	}
	return img, err
}

// DownloadWithRetry retries Download up to the configured number of
// attempts. Disallowed URLs fail immediately.
func (d *Downloader) DownloadWithRetry(ctx context.Context, rawURL, filename string) (*types.DownloadedImage, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		img, err := d.download(ctx, rawURL, filename)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}

		d.logger.Debug("download attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"error", err,
		)
		if attempt < d.maxAttempts && d.retryDelay > 0 {
			select {
			case <-ctx.Done():
				d.failed.Add(1)
				return nil, ctx.Err()
			case <-time.After(d.retryDelay):
			}
		}
	}

	d.failed.Add(1)
	return nil, lastErr
}

func (d *Downloader) download(ctx context.Context, rawURL, filename string) (*types.DownloadedImage, error) {
	target, ok := allowedURL(rawURL)
	if !ok {
		return nil, &types.DownloadError{URL: rawURL, Filename: filename, Err: types.ErrDisallowedURL}
	}

	filePath := filepath.Join(d.dir, filename)
	img := &types.DownloadedImage{
		LocalPath: path.Join("/", d.prefix, filename),
		FilePath:  filePath,
		SourceURL: target,
	}

	if info, err := os.Stat(filePath); err == nil && info.Mode().IsRegular() {
		d.cacheHits.Add(1)
		img.Size = info.Size()
		img.Cached = true
		return img, nil
	}

	v, err, shared := d.group.Do(filename, func() (any, error) {
		// Another caller may have finished the file while we waited to enter.
		if info, err := os.Stat(filePath); err == nil && info.Mode().IsRegular() {
			return info.Size(), nil
		}
		return d.fetch(ctx, target, filePath)
	})
	if err != nil {
		return nil, &types.DownloadError{URL: target, Filename: filename, Err: err}
	}
	if shared {
		d.logger.Debug("download shared", "filename", filename)
	}

	img.Size = v.(int64)
	return img, nil
}

// fetch streams target into a temporary file and moves it into place.
func (d *Downloader) fetch(ctx context.Context, target, filePath string) (int64, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	start := time.Now()
	d.requests.Add(1)
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &types.FetchError{URL: target, Err: err, Retryable: fetcher.IsRetryableError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &types.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d", resp.StatusCode),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return 0, fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, d.maxSize)
	}

	partPath := filePath + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	var reader io.Reader = resp.Body
	if d.maxSize > 0 {
		reader = io.LimitReader(resp.Body, d.maxSize)
	}

	size, err := io.Copy(f, reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(partPath, filePath); err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("rename file: %w", err)
	}

	d.downloaded.Add(1)
	d.logger.Debug("image downloaded",
		"url", target,
		"file", filePath,
		"size", size,
		"content_type", resp.Header.Get("Content-Type"),
		"duration", time.Since(start),
	)
	return size, nil
}

// retryable reports whether another attempt could succeed. Disallowed URLs
// and non-retryable HTTP statuses fail at once; local write errors are
// retried.
func retryable(err error) bool {
	if errors.Is(err, types.ErrDisallowedURL) {
		return false
	}
	var fetchErr *types.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	return true
}

// allowedURL normalizes rawURL and reports whether it points at a raster
// image over http(s) that is not an inline stub or placeholder.
func allowedURL(rawURL string) (string, bool) {
	u := strings.TrimSpace(rawURL)
	lower := strings.ToLower(u)
	if u == "" || parser.IsExcluded(u) {
		return "", false
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
		lower = "https:" + lower
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", false
	}
	if isVector(lower) {
		return "", false
	}
	return u, true
}

func isVector(lowerURL string) bool {
	p := lowerURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.HasSuffix(p, ".svg") || strings.HasSuffix(p, ".svgz")
}

// Stats returns download statistics.
func (d *Downloader) Stats() map[string]int64 {
	return map[string]int64{
		"downloaded":    d.downloaded.Load(),
		"cache_hits":    d.cacheHits.Load(),
		"failed":        d.failed.Load(),
		"network_calls": d.requests.Load(),
	}
}

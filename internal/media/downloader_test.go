package media

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

type imageServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newImageServer(t *testing.T) *imageServer {
	t.Helper()
	s := &imageServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/naipes.jpg", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpegBytes)
	})
	mux.HandleFunc("/broken.jpg", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/truncated.jpg", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Length", "1000")
		w.Write(jpegBytes)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestDownloader(t *testing.T) (*Downloader, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Images.Dir = dir
	cfg.Images.RetryDelay = time.Millisecond
	cfg.Fetcher.Timeout = 5 * time.Second

	d, err := NewDownloader(cfg.Images, cfg.Fetcher, nil, testLogger)
	require.NoError(t, err)
	return d, dir
}

func TestDownloadStoresFile(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	img, err := d.Download(context.Background(), srv.URL+"/naipes.jpg", "naipes-1.jpg")
	require.NoError(t, err)

	assert.Equal(t, "/products/naipes-1.jpg", img.LocalPath)
	assert.Equal(t, filepath.Join(dir, "naipes-1.jpg"), img.FilePath)
	assert.Equal(t, int64(len(jpegBytes)), img.Size)
	assert.False(t, img.Cached)

	data, err := os.ReadFile(img.FilePath)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
	assert.NoFileExists(t, img.FilePath+".part")
}

func TestDownloadIsIdempotent(t *testing.T) {
	srv := newImageServer(t)
	d, _ := newTestDownloader(t)
	ctx := context.Background()

	first, err := d.Download(ctx, srv.URL+"/naipes.jpg", "naipes-1.jpg")
	require.NoError(t, err)
	second, err := d.Download(ctx, srv.URL+"/naipes.jpg", "naipes-1.jpg")
	require.NoError(t, err)

	assert.Equal(t, first.LocalPath, second.LocalPath)
	assert.True(t, second.Cached)
	assert.Equal(t, int64(1), srv.hits.Load())

	stats := d.Stats()
	assert.Equal(t, int64(1), stats["downloaded"])
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(1), stats["network_calls"])
}

func TestDownloadConcurrentSameFilename(t *testing.T) {
	srv := newImageServer(t)
	d, _ := newTestDownloader(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Download(context.Background(), srv.URL+"/naipes.jpg", "naipes-1.jpg")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestDownloadWithRetryBound(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	_, err := d.DownloadWithRetry(context.Background(), srv.URL+"/broken.jpg", "broken-1.jpg")
	require.Error(t, err)

	var fetchErr *types.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)

	assert.Equal(t, int64(2), srv.hits.Load())
	assert.Equal(t, int64(1), d.Stats()["failed"])
	assert.NoFileExists(t, filepath.Join(dir, "broken-1.jpg"))
}

func TestDownloadWithRetryStopsOnPermanentStatus(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	_, err := d.DownloadWithRetry(context.Background(), srv.URL+"/missing.jpg", "missing-1.jpg")
	require.Error(t, err)

	var fetchErr *types.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.False(t, fetchErr.Retryable)

	assert.Equal(t, int64(1), srv.hits.Load())
	assert.Equal(t, int64(1), d.Stats()["failed"])
	assert.NoFileExists(t, filepath.Join(dir, "missing-1.jpg"))
}

func TestDownloadNotFound(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	_, err := d.Download(context.Background(), srv.URL+"/missing.jpg", "missing-1.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, filepath.Join(dir, "missing-1.jpg"))
}

func TestDownloadRemovesPartialFile(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	_, err := d.Download(context.Background(), srv.URL+"/truncated.jpg", "truncated-1.jpg")
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "truncated-1.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "truncated-1.jpg.part"))
}

func TestDownloadDisallowedURLs(t *testing.T) {
	srv := newImageServer(t)
	d, _ := newTestDownloader(t)

	for _, rawURL := range []string{
		"data:image/png;base64,AAAA",
		"https://cdn.example.com/img?data=base64abc",
		"ftp://cdn.example.com/naipes.jpg",
		"/relative/naipes.jpg",
		srv.URL + "/img/placeholder.jpg",
		srv.URL + "/img/EMPTY-product.png",
		srv.URL + "/logo.svg",
		srv.URL + "/logo.SVG?v=2",
		"",
	} {
		_, err := d.DownloadWithRetry(context.Background(), rawURL, "x-1.jpg")
		assert.ErrorIs(t, err, types.ErrDisallowedURL, rawURL)
	}
	assert.Equal(t, int64(0), srv.hits.Load())
}

func TestAllowedURLProtocolRelative(t *testing.T) {
	u, ok := allowedURL("//cdn.example.com/naipes.jpg")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/naipes.jpg", u)
}

func TestDownloadCancelledContext(t *testing.T) {
	srv := newImageServer(t)
	d, dir := newTestDownloader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DownloadWithRetry(ctx, srv.URL+"/naipes.jpg", "naipes-1.jpg")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "naipes-1.jpg"))
}

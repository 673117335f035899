package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const page = `<html><body><h1>Naipes</h1></body></html>`

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("X-Seen-UA", r.Header.Get("User-Agent"))
		w.Write([]byte(page))
	})

	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	mux.HandleFunc("/gzip", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(page))
		zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	})

	mux.HandleFunc("/br", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte(page))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
			w.Write([]byte(page))
		case <-r.Context().Done():
		}
	})

	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	})

	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("/404", http.NotFoundHandler())

	return httptest.NewServer(mux)
}

func newTestFetcher(t *testing.T, mutate func(*config.FetcherConfig)) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.UserAgent = "catalogscout-test"
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := NewHTTPFetcher(cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFetchOK(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := newTestFetcher(t, nil).Fetch(context.Background(), ts.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, page, string(resp.Body))
	assert.Equal(t, "catalogscout-test", resp.Headers.Get("X-Seen-UA"))

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "Naipes", doc.Find("h1").Text())
}

func TestFetchFollowsRedirects(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := newTestFetcher(t, nil).Fetch(context.Background(), ts.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/", resp.FinalURL)
	assert.Equal(t, ts.URL+"/", resp.BaseURL())
}

func TestFetchRedirectLimit(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := newTestFetcher(t, func(c *config.FetcherConfig) { c.MaxRedirects = 2 })
	_, err := f.Fetch(context.Background(), ts.URL+"/loop")
	assert.Error(t, err)
}

func TestFetchDecompresses(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := newTestFetcher(t, nil)
	for _, path := range []string{"/gzip", "/br"} {
		resp, err := f.Fetch(context.Background(), ts.URL+path)
		require.NoError(t, err, path)
		assert.Equal(t, page, string(resp.Body), path)
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestDecompressReaderIsClosable(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(page))
	zw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(page))
	bw.Close()

	for encoding, raw := range map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes(), "": []byte(page)} {
		body := &trackingBody{Reader: bytes.NewReader(raw)}
		resp := &http.Response{Header: http.Header{"Content-Encoding": []string{encoding}}, Body: body}

		rc, err := decompressReader(resp, body)
		require.NoError(t, err, encoding)
		data, err := io.ReadAll(rc)
		require.NoError(t, err, encoding)
		assert.Equal(t, page, string(data), encoding)

		require.NoError(t, rc.Close(), encoding)
		assert.False(t, body.closed, "closing the decoder must leave the response body to its owner")
	}
}

func TestFetchStatusErrors(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := newTestFetcher(t, nil)

	_, err := f.Fetch(context.Background(), ts.URL+"/404")
	var fetchErr *types.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.False(t, fetchErr.Retryable)

	_, err = f.Fetch(context.Background(), ts.URL+"/error")
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.True(t, fetchErr.Retryable)

	_, err = f.Fetch(context.Background(), ts.URL+"/empty")
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}

func TestFetchTimeout(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := newTestFetcher(t, func(c *config.FetcherConfig) { c.Timeout = 100 * time.Millisecond })

	start := time.Now()
	_, err := f.Fetch(context.Background(), ts.URL+"/slow")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := newTestFetcher(t, nil).Fetch(context.Background(), "://bad")
	var fetchErr *types.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.False(t, fetchErr.Retryable)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.False(t, IsRetryableError(errors.New("boom")))
}

package catalogscout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="product"><img src="/img/naipes.jpg"><h2>Naipes</h2></div></body></html>`)
	})
	mux.HandleFunc("/img/naipes.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScoutScanAndSave(t *testing.T) {
	srv := newShop(t)
	dir := t.TempDir()

	scout, err := New(WithImagesDir(filepath.Join(dir, "products")), WithConcurrency(2))
	require.NoError(t, err)
	defer scout.Close()

	entries := []Entry{
		{Name: "Naipes", Stock: 3, Price: "$20.00"},
		{Name: "Agenda 2025", Price: "$15.00", Index: 1},
	}
	result, err := scout.Scan(context.Background(), srv.URL+"/", entries)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, []string{"/products/naipes-1.jpg"}, result.Records[0].Images)

	out := filepath.Join(dir, "products.json")
	require.NoError(t, scout.Save(result, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved []Record
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "naipes", saved[0].ID)
}

func TestScoutRejectsInvalidInput(t *testing.T) {
	_, err := New(WithThreshold(1.5))
	assert.Error(t, err)

	scout, err := New(WithImagesDir(t.TempDir()))
	require.NoError(t, err)
	defer scout.Close()

	_, err = scout.Scan(context.Background(), "ftp://example.com", []Entry{{Name: "Naipes"}})
	assert.Error(t, err)

	_, err = scout.ScrapeURLs(context.Background(), []SourceSpec{{Name: "x", URL: "not a url"}})
	assert.Error(t, err)
}

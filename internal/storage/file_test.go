package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRecords() []*types.ProductRecord {
	return []*types.ProductRecord{
		{
			ID:               "naipes",
			Name:             "Naipes",
			Series:           "Ediciones de la Montaña",
			Price:            "$20.00",
			Stock:            10,
			Images:           []string{"/products/naipes-1.jpg"},
			Description:      "Naipes españoles",
			MatchScore:       1,
			ImagesFound:      1,
			ImagesDownloaded: 1,
		},
		{
			ID:     "agenda-2025",
			Name:   "Agenda 2025",
			Price:  "$15.00",
			Images: []string{},
			Error:  "product not found on page",
		},
	}
}

func TestPublishable(t *testing.T) {
	records := sampleRecords()

	ok := Publishable(records, false)
	require.Len(t, ok, 1)
	assert.Equal(t, "naipes", ok[0].ID)

	assert.Len(t, Publishable(records, true), 2)
	assert.Empty(t, Publishable(nil, false))
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products.json")
	s, err := NewFileStorage("json", path, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "json", s.Name())

	require.NoError(t, s.Store(sampleRecords()[:1]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ediciones de la Montaña")
	assert.Contains(t, string(data), "\n  {")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "naipes", got[0]["id"])
	assert.Equal(t, float64(10), got[0]["stock"])
	assert.Equal(t, []any{"/products/naipes-1.jpg"}, got[0]["images"])
	assert.NotContains(t, got[0], "error")
	assert.NotContains(t, got[0], "originalUrl")
}

func TestJSONStorageEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestJSONLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")
	s, err := NewFileStorage("jsonl", path, testLogger)
	require.NoError(t, err)

	require.NoError(t, s.Store(sampleRecords()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r types.ProductRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"naipes", "agenda-2025"}, ids)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	s, err := NewFileStorage("csv", path, testLogger)
	require.NoError(t, err)

	require.NoError(t, s.Store(sampleRecords()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, "naipes", rows[1][0])
	assert.Equal(t, "10", rows[1][4])
	assert.Equal(t, "/products/naipes-1.jpg", rows[1][5])
	assert.Equal(t, "1.0000", rows[1][7])
	assert.Equal(t, "product not found on page", rows[2][9])
}

func TestWriteJSONBooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	books := []types.Book{{Editorial: "Montaña", Name: "El río", Author: "Ana"}}
	require.NoError(t, WriteJSON(path, books))

	var got []types.Book
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, books, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "published output must be world-readable")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestNewFileStorageUnsupported(t *testing.T) {
	_, err := NewFileStorage("xml", filepath.Join(t.TempDir(), "x.xml"), testLogger)
	assert.Error(t, err)
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/IshaanNene/catalogscout/internal/types"
)

// --- JSON Storage ---

// JSONStorage writes records as an indented JSON array when closed.
type JSONStorage struct {
	path    string
	records []*types.ProductRecord
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONStorage creates a new JSON file storage.
func NewJSONStorage(outputPath string, logger *slog.Logger) (*JSONStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}

	return &JSONStorage{
		path:    outputPath,
		records: make([]*types.ProductRecord, 0),
		logger:  logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(records []*types.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.logger.Debug("records buffered", "count", len(records), "total", len(s.records))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := WriteJSON(s.path, s.records); err != nil {
		return err
	}
	s.logger.Info("JSON written", "path", s.path, "records", len(s.records))
	return nil
}

// WriteJSON writes v as indented JSON to path. The file is written next to
// its destination and renamed into place.
func WriteJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("create output file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	if err := encodeIndented(tmp, v); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("encode JSON: %w", err)}
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("chmod output file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &types.StorageError{Backend: "json", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("rename output file: %w", err)}
	}
	return nil
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- JSONL Storage ---

// JSONLStorage writes records as newline-delimited JSON (one object per line).
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage (streaming writes).
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create output file: %w", err)}
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    enc,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(records []*types.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.enc.Encode(r); err != nil {
			return &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("encode JSONL: %w", err)}
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

var csvHeaders = []string{
	"id", "name", "series", "price", "stock", "images",
	"description", "matchScore", "originalUrl", "error",
}

// CSVStorage writes records as CSV rows. Image paths are joined with "|".
type CSVStorage struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage and writes the header row.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output file: %w", err)}
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		f.Close()
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV header: %w", err)}
	}

	return &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: w,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(records []*types.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.ID,
			r.Name,
			r.Series,
			r.Price,
			strconv.Itoa(r.Stock),
			strings.Join(r.Images, "|"),
			r.Description,
			strconv.FormatFloat(r.MatchScore, 'f', 4, 64),
			r.OriginalURL,
			r.Error,
		}
		if err := s.writer.Write(row); err != nil {
			return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV row: %w", err)}
		}
		s.count++
	}

	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV written", "path", s.path, "records", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// NewFileStorage creates the appropriate file-based storage by type.
func NewFileStorage(storageType, outputPath string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json":
		return NewJSONStorage(outputPath, logger)
	case "jsonl":
		return NewJSONLStorage(outputPath, logger)
	case "csv":
		return NewCSVStorage(outputPath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

func ensureDir(outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return nil
}

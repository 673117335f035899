package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/IshaanNene/catalogscout/internal/types"
)

// Column names of the books export.
const (
	colEditorial = "PROVEEDOR"
	colName      = "NOMBRE"
	colAuthor    = "VARIANTE"
)

// LoadBooksFile parses the books export at path.
func LoadBooksFile(path string) ([]types.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open books: %w", err)
	}
	defer f.Close()
	return ParseBooks(f)
}

// ParseBooks reads a books CSV with a header row. Rows without a name are
// skipped and duplicates by name and author keep only the first occurrence.
func ParseBooks(r io.Reader) ([]types.Book, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []types.Book{}, nil
		}
		return nil, fmt.Errorf("read books header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	if _, ok := index[colName]; !ok {
		return nil, fmt.Errorf("books header has no %s column", colName)
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.Join(strings.Fields(row[i]), " ")
	}

	books := []types.Book{}
	seen := make(map[string]bool)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read books: %w", err)
		}

		book := types.Book{
			Editorial: field(row, colEditorial),
			Name:      field(row, colName),
			Author:    field(row, colAuthor),
		}
		if book.Name == "" {
			continue
		}
		key := book.Name + "|" + book.Author
		if seen[key] {
			continue
		}
		seen[key] = true
		books = append(books, book)
	}
	return books, nil
}

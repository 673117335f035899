// Package catalog reads the inputs of a scrape run: the delimited product
// listing, the URL source list and the books listing.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// minNameLen is the shortest acceptable product name, in runes.
const minNameLen = 3

// Options controls how a listing is split into entries.
type Options struct {
	Delimiter    string
	HeaderTokens []string
}

// OptionsFromConfig builds Options from catalog settings.
func OptionsFromConfig(cfg config.CatalogConfig) Options {
	return Options{Delimiter: cfg.Delimiter, HeaderTokens: cfg.HeaderTokens}
}

// LoadFile parses the listing at path.
func LoadFile(path string, opts Options) ([]types.CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse reads a delimited listing with columns [ignored, name, stock, price].
// The first line whose name column is empty or equals a header token is
// skipped as the header. Lines without a usable name are dropped.
func Parse(r io.Reader, opts Options) ([]types.CatalogEntry, error) {
	delim := opts.Delimiter
	if delim == "" {
		delim = ","
	}

	var (
		entries       []types.CatalogEntry
		headerSkipped bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, delim)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		if !headerSkipped && len(parts) >= 2 && (parts[1] == "" || isHeaderToken(parts[1], opts.HeaderTokens)) {
			headerSkipped = true
			continue
		}

		entry, ok := parseEntry(parts)
		if !ok {
			continue
		}
		entry.Index = len(entries)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return entries, nil
}

func parseEntry(parts []string) (types.CatalogEntry, bool) {
	if len(parts) < 2 {
		return types.CatalogEntry{}, false
	}
	name := parts[1]
	if utf8.RuneCountInString(name) < minNameLen {
		return types.CatalogEntry{}, false
	}

	entry := types.CatalogEntry{Name: name}
	if len(parts) > 2 {
		entry.Stock = parseStock(parts[2])
	}
	if len(parts) > 3 {
		entry.Price = strings.TrimSpace(strings.ReplaceAll(parts[3], `"`, ""))
	}
	return entry, true
}

func isHeaderToken(field string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.EqualFold(field, tok) {
			return true
		}
	}
	return false
}

// parseStock reads the leading integer of s. Anything unparseable or
// negative counts as zero stock.
func parseStock(s string) int {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

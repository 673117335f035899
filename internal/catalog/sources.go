package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/titanous/json5"
)

// Source types accepted in a source list.
const (
	SourceProduct = "product"
	SourceSearch  = "search"
)

// SourceSpec is one entry of the URL source list.
type SourceSpec struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // product, search
}

// LoadSources reads a JSON (or JSON5) source list from path.
func LoadSources(path string) ([]SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a source list. A missing type means "product".
func ParseSources(data []byte) ([]SourceSpec, error) {
	var specs []SourceSpec
	if err := json5.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	for i := range specs {
		s := &specs[i]
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Type == "" {
			s.Type = SourceProduct
		}
		if s.URL == "" {
			return nil, fmt.Errorf("source %d (%q): url is required", i, s.Name)
		}
		if s.Type != SourceProduct && s.Type != SourceSearch {
			return nil, fmt.Errorf("source %d (%q): type must be 'product' or 'search', got %q", i, s.Name, s.Type)
		}
	}
	return specs, nil
}

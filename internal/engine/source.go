package engine

import (
	"github.com/IshaanNene/catalogscout/internal/catalog"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// SourceKind selects how a source discovers its entries.
type SourceKind int

const (
	// ScanSitePage locates every catalog entry on one shared page.
	ScanSitePage SourceKind = iota
	// DirectProductURL is a single product page.
	DirectProductURL
	// SearchResults is a search page whose product links are each processed
	// as a DirectProductURL.
	SearchResults
)

func (k SourceKind) String() string {
	switch k {
	case ScanSitePage:
		return "scan"
	case DirectProductURL:
		return "product"
	case SearchResults:
		return "search"
	default:
		return "unknown"
	}
}

// Source is one unit of input to a run.
type Source struct {
	Kind SourceKind
	URL  string

	// Name is the configured product name of a DirectProductURL or the label
	// of a SearchResults source.
	Name string

	// Entries are the catalog entries located on a ScanSitePage.
	Entries []types.CatalogEntry
}

// ScanPage returns a source that locates entries on the page at url.
func ScanPage(url string, entries []types.CatalogEntry) Source {
	return Source{Kind: ScanSitePage, URL: url, Entries: entries}
}

// ProductPage returns a source for a single product page.
func ProductPage(name, url string) Source {
	return Source{Kind: DirectProductURL, URL: url, Name: name}
}

// SearchPage returns a source that expands the product links found on url.
func SearchPage(name, url string) Source {
	return Source{Kind: SearchResults, URL: url, Name: name}
}

// FromSpecs converts entries of a sources file into Sources.
func FromSpecs(specs []catalog.SourceSpec) []Source {
	sources := make([]Source, 0, len(specs))
	for _, s := range specs {
		if s.Type == catalog.SourceSearch {
			sources = append(sources, SearchPage(s.Name, s.URL))
		} else {
			sources = append(sources, ProductPage(s.Name, s.URL))
		}
	}
	return sources
}

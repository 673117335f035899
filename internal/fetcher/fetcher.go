// Package fetcher retrieves pages from the target site.
package fetcher

import (
	"context"

	"github.com/IshaanNene/catalogscout/internal/types"
)

// Fetcher is the interface for page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the document at rawURL.
	Fetch(ctx context.Context, rawURL string) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

package storage

import (
	"github.com/IshaanNene/catalogscout/internal/types"
)

// Storage is the interface for product record sinks.
type Storage interface {
	// Store persists a batch of records.
	Store(records []*types.ProductRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Publishable returns the records that belong in the output file: all of
// them when includeFailed is set, otherwise only those without an error.
func Publishable(records []*types.ProductRecord, includeFailed bool) []*types.ProductRecord {
	out := make([]*types.ProductRecord, 0, len(records))
	for _, r := range records {
		if includeFailed || !r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

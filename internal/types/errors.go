package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrDisallowedURL = errors.New("disallowed URL")
	ErrNotFound      = errors.New("no element matched above threshold")
	ErrEmptyCatalog  = errors.New("catalog has no usable entries")
	ErrNoSources     = errors.New("no sources to process")
	ErrEmptyResponse = errors.New("empty response body")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DownloadError wraps a failed image download.
type DownloadError struct {
	URL      string
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s -> %s: %v", e.URL, e.Filename, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors raised while finalizing a record.
type PipelineError struct {
	Stage string
	ID    string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.ID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

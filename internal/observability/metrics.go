package observability

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Metrics tracks counters for one enrichment run.
type Metrics struct {
	// Entry metrics
	EntriesTotal      atomic.Int64
	EntriesMatched    atomic.Int64
	EntriesWithImages atomic.Int64
	EntriesFailed     atomic.Int64

	// Image metrics
	ImagesFound      atomic.Int64
	ImagesDownloaded atomic.Int64
	ImagesFailed     atomic.Int64
	ImagesCached     atomic.Int64

	// Page metrics
	PagesFetched atomic.Int64
	PagesFailed  atomic.Int64

	logger *slog.Logger
}

// Stats is a point-in-time copy of Metrics.
type Stats struct {
	EntriesTotal      int64 `json:"entriesTotal"`
	EntriesMatched    int64 `json:"entriesMatched"`
	EntriesWithImages int64 `json:"entriesWithImages"`
	EntriesFailed     int64 `json:"entriesFailed"`
	ImagesFound       int64 `json:"imagesFound"`
	ImagesDownloaded  int64 `json:"imagesDownloaded"`
	ImagesFailed      int64 `json:"imagesFailed"`
	ImagesCached      int64 `json:"imagesCached"`
	PagesFetched      int64 `json:"pagesFetched"`
	PagesFailed       int64 `json:"pagesFailed"`
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		EntriesTotal:      m.EntriesTotal.Load(),
		EntriesMatched:    m.EntriesMatched.Load(),
		EntriesWithImages: m.EntriesWithImages.Load(),
		EntriesFailed:     m.EntriesFailed.Load(),
		ImagesFound:       m.ImagesFound.Load(),
		ImagesDownloaded:  m.ImagesDownloaded.Load(),
		ImagesFailed:      m.ImagesFailed.Load(),
		ImagesCached:      m.ImagesCached.Load(),
		PagesFetched:      m.PagesFetched.Load(),
		PagesFailed:       m.PagesFailed.Load(),
	}
}

// WritePrometheus writes the counters in Prometheus text exposition format,
// suitable for a node_exporter textfile collector.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	s := m.Snapshot()
	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"catalogscout_entries_total", "Catalog entries processed", s.EntriesTotal},
		{"catalogscout_entries_matched_total", "Entries located on the site", s.EntriesMatched},
		{"catalogscout_entries_with_images_total", "Entries with at least one stored image", s.EntriesWithImages},
		{"catalogscout_entries_failed_total", "Entries that produced an error record", s.EntriesFailed},
		{"catalogscout_images_found_total", "Candidate image URLs found", s.ImagesFound},
		{"catalogscout_images_downloaded_total", "Images stored locally", s.ImagesDownloaded},
		{"catalogscout_images_failed_total", "Images that could not be stored", s.ImagesFailed},
		{"catalogscout_images_cached_total", "Images served from the local store", s.ImagesCached},
		{"catalogscout_pages_fetched_total", "Pages fetched", s.PagesFetched},
		{"catalogscout_pages_failed_total", "Page fetches that failed", s.PagesFailed},
	}

	for _, metric := range metrics {
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
			metric.name, metric.help, metric.name, metric.name, metric.value); err != nil {
			return err
		}
	}
	return nil
}

// LogSummary logs the current counters at info level.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	m.logger.Info("run summary",
		"entries", s.EntriesTotal,
		"matched", s.EntriesMatched,
		"with_images", s.EntriesWithImages,
		"failed", s.EntriesFailed,
		"images_found", s.ImagesFound,
		"images_downloaded", s.ImagesDownloaded,
		"images_failed", s.ImagesFailed,
		"images_cached", s.ImagesCached,
	)
}

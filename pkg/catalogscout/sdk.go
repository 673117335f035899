// Package catalogscout provides a public SDK for embedding catalogscout as a
// library.
//
// Example usage:
//
//	scout, err := catalogscout.New(
//	    catalogscout.WithImagesDir("./public/products"),
//	    catalogscout.WithThreshold(0.6),
//	)
//	if err != nil {
//	    return err
//	}
//	defer scout.Close()
//
//	entries, err := catalogscout.LoadCatalog("products.csv")
//	if err != nil {
//	    return err
//	}
//	result, err := scout.Scan(ctx, "https://shop.example.com/", entries)
//	if err != nil {
//	    return err
//	}
//	err = scout.Save(result, "products.json")
package catalogscout

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/IshaanNene/catalogscout/internal/catalog"
	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/engine"
	"github.com/IshaanNene/catalogscout/internal/fetcher"
	"github.com/IshaanNene/catalogscout/internal/media"
	"github.com/IshaanNene/catalogscout/internal/storage"
	"github.com/IshaanNene/catalogscout/internal/types"
)

type (
	// Entry is one row of the product listing.
	Entry = types.CatalogEntry
	// Record is the normalized output for one processed entry.
	Record = types.ProductRecord
	// Result is the outcome of a run.
	Result = engine.Result
	// SourceSpec is one entry of a sources file.
	SourceSpec = catalog.SourceSpec
)

// Scout is the high-level API for using catalogscout as a library.
type Scout struct {
	cfg     *config.Config
	fetcher *fetcher.HTTPFetcher
	engine  *engine.Engine
	logger  *slog.Logger
}

// Option configures a Scout.
type Option func(*settings)

type settings struct {
	cfg    *config.Config
	logger *slog.Logger
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithConcurrency sets how many catalog entries are processed in parallel.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.cfg.Engine.Concurrency = n }
}

// WithThreshold sets the minimum match score, exclusive.
func WithThreshold(t float64) Option {
	return func(s *settings) { s.cfg.Matcher.Threshold = t }
}

// WithImagesDir sets where images are stored.
func WithImagesDir(dir string) Option {
	return func(s *settings) { s.cfg.Images.Dir = dir }
}

// WithMaxImages sets how many images are stored per product.
func WithMaxImages(n int) Option {
	return func(s *settings) { s.cfg.Images.MaxPerProduct = n }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.cfg.Fetcher.UserAgent = ua }
}

// WithIncludeFailed keeps failed entries in saved output.
func WithIncludeFailed() Option {
	return func(s *settings) { s.cfg.Storage.IncludeFailed = true }
}

// WithLogger sets the logger. The default discards everything below warn.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// New creates a Scout with the given options.
func New(opts ...Option) (*Scout, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(s.cfg.Fetcher, s.logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	downloader, err := media.NewDownloader(s.cfg.Images, s.cfg.Fetcher, httpFetcher.Client(), s.logger)
	if err != nil {
		httpFetcher.Close()
		return nil, fmt.Errorf("create image store: %w", err)
	}

	return &Scout{
		cfg:     s.cfg,
		fetcher: httpFetcher,
		engine:  engine.New(s.cfg, httpFetcher, downloader, s.logger),
		logger:  s.logger,
	}, nil
}

// LoadCatalog parses a delimited product listing with the default options.
func LoadCatalog(path string) ([]Entry, error) {
	return catalog.LoadFile(path, catalog.OptionsFromConfig(config.DefaultConfig().Catalog))
}

// LoadSources parses a JSON or JSON5 sources file.
func LoadSources(path string) ([]SourceSpec, error) {
	return catalog.LoadSources(path)
}

// Scan locates entries on the page at siteURL.
func (s *Scout) Scan(ctx context.Context, siteURL string, entries []Entry) (*Result, error) {
	if err := config.ValidateURL(siteURL); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, []engine.Source{engine.ScanPage(siteURL, entries)})
}

// ScrapeURLs processes direct product and search result pages.
func (s *Scout) ScrapeURLs(ctx context.Context, specs []SourceSpec) (*Result, error) {
	for _, spec := range specs {
		if err := config.ValidateURL(spec.URL); err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
	}
	return s.engine.Run(ctx, engine.FromSpecs(specs))
}

// Save writes the publishable records of result to path as JSON.
func (s *Scout) Save(result *Result, path string) error {
	return storage.WriteJSON(path, storage.Publishable(result.Records, s.cfg.Storage.IncludeFailed))
}

// Close releases network resources.
func (s *Scout) Close() error {
	return s.fetcher.Close()
}

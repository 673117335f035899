package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/fetcher"
	"github.com/IshaanNene/catalogscout/internal/match"
	"github.com/IshaanNene/catalogscout/internal/observability"
	"github.com/IshaanNene/catalogscout/internal/parser"
	"github.com/IshaanNene/catalogscout/internal/pipeline"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// ImageStore persists product images.
type ImageStore interface {
	DownloadWithRetry(ctx context.Context, rawURL, filename string) (*types.DownloadedImage, error)
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Records  []*types.ProductRecord
	Stats    observability.Stats
	Metrics  *observability.Metrics
	Started  time.Time
	Duration time.Duration
}

// Engine turns sources into product records.
type Engine struct {
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	images    ImageStore
	locator   *match.Locator
	extractor *parser.ImageExtractor
	fields    *parser.FieldExtractor
	links     *parser.LinkDiscoverer
	pipeline  *pipeline.Pipeline
	logger    *slog.Logger
}

// New creates an Engine.
func New(cfg *config.Config, f fetcher.Fetcher, images ImageStore, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		fetcher:   f,
		images:    images,
		locator:   match.NewLocator(cfg.Matcher, logger),
		extractor: parser.NewImageExtractor(cfg.Images.Selectors, cfg.Images.AncestorDepth, logger),
		fields:    parser.NewFieldExtractor(cfg.Extract, logger),
		links:     parser.NewLinkDiscoverer(cfg.Extract.LinkSelectors, logger),
		pipeline:  pipeline.Default(cfg.Extract.DescriptionMaxLen, logger),
		logger:    logger.With("component", "engine"),
	}
}

// job is one record to produce. Exactly one of page, product or failed is
// meaningful.
type job struct {
	entry   types.CatalogEntry
	page    *pageRef
	product *productRef
	failed  *types.ProductRecord
}

type pageRef struct {
	doc     *goquery.Document
	baseURL string
}

type productRef struct {
	name string
	url  string
}

// run holds the state of a single Run call.
type run struct {
	*Engine
	id      string
	metrics *observability.Metrics
	dedup   *Deduplicator
	logger  *slog.Logger
}

// Run processes sources in order and returns one record per entry. A site
// page that cannot be fetched aborts the run; every other failure becomes an
// error record. Records keep input order regardless of concurrency.
func (e *Engine) Run(ctx context.Context, sources []Source) (*Result, error) {
	if len(sources) == 0 {
		return nil, types.ErrNoSources
	}

	started := time.Now()
	r := &run{
		Engine:  e,
		id:      uuid.NewString(),
		metrics: observability.NewMetrics(e.logger),
		dedup:   NewDeduplicator(),
	}
	r.logger = e.logger.With("run_id", r.id)

	r.logger.Info("run starting",
		"sources", len(sources),
		"concurrency", e.cfg.Engine.Concurrency,
		"threshold", e.cfg.Matcher.Threshold,
	)

	jobs, err := r.plan(ctx, sources)
	if err != nil {
		return nil, err
	}

	records := make([]*types.ProductRecord, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Engine.Concurrency, 1))
	for i, j := range jobs {
		g.Go(func() error {
			records[i] = r.process(gctx, j)
			return nil
		})
	}
	// Workers never return an error, so Wait only blocks.
	_ = g.Wait()

	result := &Result{
		RunID:    r.id,
		Records:  records,
		Stats:    r.metrics.Snapshot(),
		Metrics:  r.metrics,
		Started:  started,
		Duration: time.Since(started),
	}

	r.metrics.LogSummary()
	r.logger.Info("run complete", "records", len(records), "duration", result.Duration)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run interrupted: %w", err)
	}
	return result, nil
}

// plan fetches scan and search pages and expands sources into jobs.
func (r *run) plan(ctx context.Context, sources []Source) ([]job, error) {
	var jobs []job
	for _, src := range sources {
		switch src.Kind {
		case ScanSitePage:
			if len(src.Entries) == 0 {
				return nil, fmt.Errorf("scan %s: %w", src.URL, types.ErrEmptyCatalog)
			}
			page, err := r.fetchPage(ctx, src.URL)
			if err != nil {
				return nil, fmt.Errorf("fetch site page: %w", err)
			}
			for _, entry := range src.Entries {
				jobs = append(jobs, job{entry: entry, page: page})
			}

		case DirectProductURL:
			r.dedup.Add(src.URL)
			jobs = append(jobs, job{product: &productRef{name: productName(src), url: src.URL}})

		case SearchResults:
			jobs = append(jobs, r.expandSearch(ctx, src)...)

		default:
			return nil, fmt.Errorf("source %q: unknown kind %d", src.URL, src.Kind)
		}
	}
	return jobs, nil
}

func productName(src Source) string {
	if src.Name != "" {
		return src.Name
	}
	return src.URL
}

// expandSearch turns a search page into product jobs. A page that cannot be
// fetched yields a single failed job.
func (r *run) expandSearch(ctx context.Context, src Source) []job {
	page, err := r.fetchPage(ctx, src.URL)
	if err != nil {
		r.logger.Error("search page failed", "name", src.Name, "url", src.URL, "error", err)
		return []job{{failed: r.failedRecord(productName(src), src.URL, err.Error())}}
	}

	found := r.links.Discover(page.doc, page.baseURL)
	r.logger.Info("search results", "name", src.Name, "links", len(found))

	var jobs []job
	for _, link := range found {
		if len(jobs) >= r.cfg.Extract.SearchLimit {
			break
		}
		if !r.dedup.Add(link.URL) {
			r.logger.Debug("duplicate product link", "url", link.URL)
			continue
		}
		jobs = append(jobs, job{product: &productRef{name: link.Name, url: link.URL}})
	}
	if len(jobs) == 0 {
		r.logger.Warn("no product links in search results", "name", src.Name, "url", src.URL)
	}
	return jobs
}

func (r *run) fetchPage(ctx context.Context, rawURL string) (*pageRef, error) {
	resp, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		r.metrics.PagesFailed.Add(1)
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		r.metrics.PagesFailed.Add(1)
		return nil, err
	}
	r.metrics.PagesFetched.Add(1)
	r.logger.Debug("page fetched",
		"url", rawURL,
		"final_url", resp.BaseURL(),
		"bytes", len(resp.Body),
		"duration", resp.FetchDuration,
	)
	return &pageRef{doc: doc, baseURL: resp.BaseURL()}, nil
}

func (r *run) process(ctx context.Context, j job) *types.ProductRecord {
	r.metrics.EntriesTotal.Add(1)

	var rec *types.ProductRecord
	switch {
	case j.failed != nil:
		rec = j.failed
	case j.page != nil:
		rec = r.processEntry(ctx, j.entry, j.page)
	default:
		rec = r.processProduct(ctx, j.product)
	}

	if err := r.pipeline.Process(rec); err != nil {
		r.logger.Error("record rejected", "id", rec.ID, "error", err)
		rec.Error = err.Error()
		rec.Images = []string{}
		rec.ImagesDownloaded = 0
	}

	if rec.Failed() {
		r.metrics.EntriesFailed.Add(1)
		return rec
	}
	r.metrics.EntriesMatched.Add(1)
	if len(rec.Images) > 0 {
		r.metrics.EntriesWithImages.Add(1)
	}
	return rec
}

// processEntry locates a catalog entry on a shared page.
func (r *run) processEntry(ctx context.Context, entry types.CatalogEntry, page *pageRef) *types.ProductRecord {
	rec := r.newRecord(entry.Name)
	rec.Price = entry.Price
	rec.Stock = entry.Stock

	m := r.locator.Locate(entry.Name, page.doc)
	rec.MatchScore = m.Best
	if !m.Found {
		rec.Error = fmt.Sprintf("%v (best score %.2f)", types.ErrNotFound, m.Best)
		r.logger.Warn("product not found", "name", entry.Name, "best_score", m.Best)
		return rec
	}
	rec.MatchScore = m.Score

	candidates := r.extractor.ExtractWithFallback(m.Selection, page.baseURL)
	rec.Description = parser.ElementText(m.Selection, r.cfg.Extract.DescriptionMaxLen)
	r.storeImages(ctx, rec, candidates)

	r.logger.Info("product matched",
		"name", entry.Name,
		"score", fmt.Sprintf("%.2f", m.Score),
		"images_found", rec.ImagesFound,
		"images_stored", rec.ImagesDownloaded,
	)
	return rec
}

// processProduct scrapes a product page directly.
func (r *run) processProduct(ctx context.Context, p *productRef) *types.ProductRecord {
	rec := r.newRecord(p.name)
	rec.OriginalURL = p.url

	page, err := r.fetchPage(ctx, p.url)
	if err != nil {
		r.logger.Error("product page failed", "name", p.name, "url", p.url, "error", err)
		rec.Error = err.Error()
		return rec
	}

	detected := r.fields.Name(page.doc)
	if detected == "" {
		detected = p.name
	}
	rec.Name = detected
	rec.MatchScore = r.locator.Scorer().Score(p.name, detected)
	rec.Description = r.fields.Description(page.doc)

	candidates := r.extractor.Extract(page.doc.Selection, page.baseURL)
	r.storeImages(ctx, rec, candidates)

	r.logger.Info("product scraped",
		"name", detected,
		"url", p.url,
		"images_found", rec.ImagesFound,
		"images_stored", rec.ImagesDownloaded,
	)
	return rec
}

// storeImages downloads up to the per-product limit of candidates one at a
// time. Failed images are skipped.
func (r *run) storeImages(ctx context.Context, rec *types.ProductRecord, candidates []string) {
	rec.ImagesFound = len(candidates)
	r.metrics.ImagesFound.Add(int64(len(candidates)))

	limit := min(len(candidates), r.cfg.Images.MaxPerProduct)
	for i := 0; i < limit; i++ {
		filename := fmt.Sprintf("%s-%d%s", rec.ID, i+1, r.cfg.Images.Extension)
		img, err := r.images.DownloadWithRetry(ctx, candidates[i], filename)
		if err != nil {
			r.metrics.ImagesFailed.Add(1)
			level := slog.LevelWarn
			if errors.Is(err, types.ErrDisallowedURL) {
				level = slog.LevelDebug
			}
			r.logger.Log(ctx, level, "image not stored",
				"product", rec.Name,
				"url", candidates[i],
				"error", err,
			)
			continue
		}
		if img.Cached {
			r.metrics.ImagesCached.Add(1)
		}
		r.metrics.ImagesDownloaded.Add(1)
		rec.Images = append(rec.Images, img.LocalPath)
	}
	rec.ImagesDownloaded = len(rec.Images)
}

func (r *run) newRecord(name string) *types.ProductRecord {
	id := match.Slugify(name)
	if id == "" {
		id = "product"
	}
	return &types.ProductRecord{
		ID:     id,
		Name:   name,
		Series: r.cfg.Engine.Series,
		Images: []string{},
	}
}

func (r *run) failedRecord(name, rawURL, msg string) *types.ProductRecord {
	rec := r.newRecord(name)
	rec.OriginalURL = rawURL
	rec.Error = msg
	return rec
}

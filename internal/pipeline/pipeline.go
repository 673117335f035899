package pipeline

import (
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/catalogscout/internal/types"
)

// Middleware transforms a product record before it is emitted.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record in place.
	Process(rec *types.ProductRecord) error
}

// Pipeline chains middleware processors together. Middleware must be safe
// for concurrent use.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline applied to every record: markup removal,
// whitespace trimming and description finalization.
func Default(descriptionMaxLen int, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&TrimMiddleware{})
	p.Use(&DescriptionMiddleware{MaxLen: descriptionMaxLen})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.ProductRecord) error {
	for _, mw := range p.middlewares {
		if err := mw.Process(rec); err != nil {
			return &types.PipelineError{Stage: mw.Name(), ID: rec.ID, Err: err}
		}
	}
	return nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from the text fields of a record.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.ProductRecord) error {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Series = strings.TrimSpace(rec.Series)
	rec.Price = strings.TrimSpace(rec.Price)
	rec.Description = strings.TrimSpace(rec.Description)
	return nil
}

// HTMLSanitizeMiddleware strips markup and entities left in scraped text.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.ProductRecord) error {
	rec.Name = m.clean(rec.Name)
	rec.Description = m.clean(rec.Description)
	return nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	if s == "" {
		return s
	}
	cleaned := m.stripRe.ReplaceAllString(s, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// DescriptionMiddleware caps the description at MaxLen runes and falls back
// to the product name for successful records without one.
type DescriptionMiddleware struct {
	MaxLen int
}

func (m *DescriptionMiddleware) Name() string { return "description" }

func (m *DescriptionMiddleware) Process(rec *types.ProductRecord) error {
	if rec.Description == "" && !rec.Failed() {
		rec.Description = rec.Name
	}
	if m.MaxLen > 0 && utf8.RuneCountInString(rec.Description) > m.MaxLen {
		rec.Description = strings.TrimSpace(string([]rune(rec.Description)[:m.MaxLen]))
	}
	return nil
}

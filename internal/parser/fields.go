package parser

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/catalogscout/internal/config"
)

// FieldExtractor reads the product name and description of a product page
// using ordered CSS or XPath rules. The first rule whose first match has
// enough text wins.
type FieldExtractor struct {
	nameRules        []config.Rule
	descriptionRules []config.Rule
	fallbackRules    []config.Rule
	maxDescLen       int
	logger           *slog.Logger
}

// NewFieldExtractor creates a FieldExtractor from extraction settings.
func NewFieldExtractor(cfg config.ExtractConfig, logger *slog.Logger) *FieldExtractor {
	return &FieldExtractor{
		nameRules:        cfg.NameRules,
		descriptionRules: cfg.DescriptionRules,
		fallbackRules:    cfg.FallbackRules,
		maxDescLen:       cfg.DescriptionMaxLen,
		logger:           logger.With("component", "field_extractor"),
	}
}

// Name returns the product name detected on the page, or "".
func (f *FieldExtractor) Name(doc *goquery.Document) string {
	return f.firstMatch(doc, f.nameRules)
}

// Description returns the product description truncated to the configured
// length, falling back to the page's main content area.
func (f *FieldExtractor) Description(doc *goquery.Document) string {
	if desc := f.firstMatch(doc, f.descriptionRules); desc != "" {
		return Truncate(desc, f.maxDescLen)
	}
	return Truncate(f.firstMatch(doc, f.fallbackRules), f.maxDescLen)
}

func (f *FieldExtractor) firstMatch(doc *goquery.Document, rules []config.Rule) string {
	for _, rule := range rules {
		text := f.apply(doc, rule)
		if text != "" && utf8.RuneCountInString(text) >= max(rule.MinLen, 1) {
			return text
		}
	}
	return ""
}

// apply returns the trimmed text of the first node matched by rule.
func (f *FieldExtractor) apply(doc *goquery.Document, rule config.Rule) string {
	switch rule.Type {
	case "xpath":
		if len(doc.Nodes) == 0 {
			return ""
		}
		node, err := htmlquery.Query(doc.Nodes[0], rule.Selector)
		if err != nil {
			f.logger.Warn("invalid xpath", "selector", rule.Selector, "error", err)
			return ""
		}
		if node == nil {
			return ""
		}
		return collapse(nodeText(node))
	default:
		return collapse(doc.Find(rule.Selector).First().Text())
	}
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	return htmlquery.InnerText(n)
}

// ElementText returns the whitespace-collapsed text of sel, truncated to
// maxLen runes.
func ElementText(sel *goquery.Selection, maxLen int) string {
	return Truncate(collapse(sel.Text()), maxLen)
}

// Truncate cuts s to at most n runes. A non-positive n leaves s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

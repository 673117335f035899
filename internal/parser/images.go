package parser

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Attributes read for an image source, in priority order.
var sourceAttrs = []string{"src", "data-src", "data-lazy-src"}

var backgroundImagePattern = regexp.MustCompile(`background-image:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// Markers that disqualify a candidate URL.
var excludedMarkers = []string{"data:", "base64", "placeholder", "empty"}

// ImageExtractor finds candidate product image URLs inside a DOM subtree.
type ImageExtractor struct {
	selectors     []string
	ancestorDepth int
	logger        *slog.Logger
}

// NewImageExtractor creates an extractor that applies selectors in order and
// climbs up to ancestorDepth ancestors when a node yields nothing.
func NewImageExtractor(selectors []string, ancestorDepth int, logger *slog.Logger) *ImageExtractor {
	return &ImageExtractor{
		selectors:     selectors,
		ancestorDepth: ancestorDepth,
		logger:        logger.With("component", "image_extractor"),
	}
}

// Extract returns the deduplicated absolute image URLs found in sel and its
// descendants, in strategy order. Relative references resolve against
// baseURL; candidates that fail to resolve are skipped.
func (e *ImageExtractor) Extract(sel *goquery.Selection, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		e.logger.Debug("invalid base URL", "base", baseURL, "error", err)
		base = nil
	}

	set := newOrderedSet()
	for _, selector := range e.selectors {
		matches := sel.Filter(selector).AddSelection(sel.Find(selector))
		matches.Each(func(_ int, el *goquery.Selection) {
			src := imageSource(el)
			if src == "" {
				return
			}
			abs, ok := resolve(base, src)
			if !ok {
				e.logger.Debug("invalid image URL", "src", src)
				return
			}
			if IsExcluded(abs) {
				return
			}
			set.add(abs)
		})
	}
	return set.items
}

// ExtractWithFallback runs Extract on sel and, when it yields nothing, on up
// to ancestorDepth ancestors, stopping at the first that yields a candidate.
func (e *ImageExtractor) ExtractWithFallback(sel *goquery.Selection, baseURL string) []string {
	images := e.Extract(sel, baseURL)
	current := sel
	for i := 0; i < e.ancestorDepth && len(images) == 0; i++ {
		current = current.Parent()
		if current.Length() == 0 {
			break
		}
		images = e.Extract(current, baseURL)
		if len(images) > 0 {
			e.logger.Debug("images found on ancestor", "level", i+1, "count", len(images))
		}
	}
	return images
}

// imageSource returns the first usable source of el. A src holding an
// inline stub or placeholder falls through to the lazy-load attributes and
// then to the inline background image.
func imageSource(el *goquery.Selection) string {
	for _, attr := range sourceAttrs {
		if v, ok := el.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" && !IsExcluded(v) {
				return v
			}
		}
	}
	if style, ok := el.Attr("style"); ok {
		if m := backgroundImagePattern.FindStringSubmatch(style); m != nil {
			if v := strings.TrimSpace(m[1]); !IsExcluded(v) {
				return v
			}
		}
	}
	return ""
}

// IsExcluded reports whether src carries an inline data, base64,
// placeholder or empty marker.
func IsExcluded(src string) bool {
	lower := strings.ToLower(src)
	for _, marker := range excludedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// resolve turns src into an absolute http(s) URL.
func resolve(base *url.URL, src string) (string, bool) {
	if strings.HasPrefix(src, "//") && base == nil {
		src = "https:" + src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		if base == nil {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}

// orderedSet keeps insertion order and drops later duplicates.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductLink is a product page discovered on a search results page.
type ProductLink struct {
	URL  string
	Name string
}

// LinkDiscoverer finds product links on search result pages.
type LinkDiscoverer struct {
	selectors []string
	logger    *slog.Logger
}

// NewLinkDiscoverer creates a discoverer that tries selectors in order.
func NewLinkDiscoverer(selectors []string, logger *slog.Logger) *LinkDiscoverer {
	return &LinkDiscoverer{
		selectors: selectors,
		logger:    logger.With("component", "link_discoverer"),
	}
}

// Discover returns the links matched by the first selector that yields any,
// deduplicated by href, with anchors whose text is empty ignored. Links are
// resolved against baseURL.
func (d *LinkDiscoverer) Discover(doc *goquery.Document, baseURL string) []ProductLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	for _, selector := range d.selectors {
		var links []ProductLink
		seen := make(map[string]bool)

		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href, exists := sel.Attr("href")
			href = strings.TrimSpace(href)
			if !exists || href == "" || seen[href] {
				return
			}
			text := collapse(sel.Text())
			if text == "" {
				return
			}
			if strings.HasPrefix(href, "#") ||
				strings.HasPrefix(href, "javascript:") ||
				strings.HasPrefix(href, "mailto:") {
				return
			}

			parsed, err := url.Parse(href)
			if err != nil {
				d.logger.Debug("invalid link", "href", href, "error", err)
				return
			}
			resolved := base.ResolveReference(parsed)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				return
			}
			resolved.Fragment = ""

			seen[href] = true
			links = append(links, ProductLink{URL: resolved.String(), Name: text})
		})

		if len(links) > 0 {
			d.logger.Debug("product links discovered", "selector", selector, "count", len(links))
			return links
		}
	}
	return nil
}

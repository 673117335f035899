package match

import (
	"log/slog"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/types"
)

// Locator finds the page element that best represents a catalog product.
//
// Every element under <body> whose raw text length lies inside the configured
// window is scored, so a lookup costs O(elements x text length²). That is fine
// for catalogs of a few hundred entries against one page but does not scale
// to large sites; callers should keep pages and catalogs bounded.
type Locator struct {
	scorer    *Scorer
	threshold float64
	minLen    int
	maxLen    int
	logger    *slog.Logger
}

// NewLocator creates a Locator from matcher settings.
func NewLocator(cfg config.MatcherConfig, logger *slog.Logger) *Locator {
	return &Locator{
		scorer:    NewScorer(cfg.PartialBonus),
		threshold: cfg.Threshold,
		minLen:    cfg.MinTextLen,
		maxLen:    cfg.MaxTextLen,
		logger:    logger.With("component", "locator"),
	}
}

// Scorer returns the scorer used by the locator.
func (l *Locator) Scorer() *Scorer { return l.scorer }

// Locate scans doc for the element whose text best matches target. The
// result is Found only when the best score is strictly greater than the
// threshold. Candidates are ranked on the unclamped score and ties keep the
// first element in document order; the reported scores are clamped to 1.
func (l *Locator) Locate(target string, doc *goquery.Document) types.MatchResult {
	normalizedTarget := Normalize(target)

	var (
		best     *goquery.Selection
		bestSeen float64
		scanned  int
	)

	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		n := utf8.RuneCountInString(text)
		if n < l.minLen || n > l.maxLen {
			return
		}
		scanned++

		score := l.scorer.rawScore(normalizedTarget, Normalize(text))
		if best == nil || score > bestSeen {
			bestSeen = score
			best = sel
		}
	})

	bestSeen = min(bestSeen, 1.0)
	l.logger.Debug("locate complete",
		"target", target,
		"candidates", scanned,
		"best", bestSeen,
	)

	if best == nil || bestSeen <= l.threshold {
		return types.MatchResult{Best: bestSeen}
	}
	return types.MatchResult{
		Selection: best,
		Score:     bestSeen,
		Best:      bestSeen,
		Found:     true,
	}
}

package match

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogscout/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// --- Normalizer ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello,   WORLD!  ", "hello world"},
		{"a & b", "a b"},
		{"Imán – Floral", "imán floral"},
		{"ÁÉÍÓÚÑ", "áéíóúñ"},
		{"über", "ber"},
		{"tab\tand nbsp\nline", "tab and nbsp line"},
		{"multi-word_name 2025", "multi-word_name 2025"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  Planner Mensual Imán - Floral ",
		"a & b & c",
		"<b>Naipes</b>\n\n  $20.00",
		"ÑANDÚ   ¿qué?",
		"  leading nbsp",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

// --- Slug ---

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "planner-mensual-iman-floral", Slugify("Planner Mensual Imán - Floral"))
	assert.Equal(t, "agenda-2025", Slugify("Agenda 2025"))
	assert.Equal(t, "hello-world", Slugify("  --Hello__World--  "))
	assert.Equal(t, "", Slugify("   "))

	for _, name := range []string{"Planner Mensual Imán - Floral", "NAIPES (estilo español)", "Libreta #3 / A5"} {
		slug := Slugify(name)
		assert.Regexp(t, slugPattern, slug, "slug for %q", name)
		assert.Equal(t, slug, Slugify(name), "slug must be deterministic")
	}
}

// --- Scorer ---

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("", "abc"))
	assert.Equal(t, 1.0, Similarity("naipes", "naipes"))
	assert.InDelta(t, 4.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 0.5, Similarity("abcdef", "abcxyz"), 1e-9)
}

func TestSimilarityProperties(t *testing.T) {
	pairs := [][2]string{
		{"naipes", "naipes estilo español"},
		{"agenda 2025", "agenda"},
		{"", "x"},
		{"ñandú", "nandu"},
		{"libreta parques nacionales", "libreta"},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		assert.Equal(t, 1.0, Similarity(a, a))
		ab, ba := Similarity(a, b), Similarity(b, a)
		assert.Equal(t, ab, ba, "symmetry for %q/%q", a, b)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestDistanceCountsRunes(t *testing.T) {
	assert.Equal(t, 1, Distance("imán", "iman"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 0, Distance("", ""))
}

func TestScorePartialBonus(t *testing.T) {
	s := NewScorer(DefaultPartialBonus)

	// "naipes español" vs "naipes": 14 runes, distance 8, plus bonus.
	assert.InDelta(t, 6.0/14.0+0.2, s.Score("Naipes Español", "Naipes"), 1e-9)

	// No shared first token, no bonus.
	assert.InDelta(t, 0.5, s.Score("abcdef", "abcxyz"), 1e-9)
}

func TestScoreIsClamped(t *testing.T) {
	s := NewScorer(DefaultPartialBonus)
	assert.Equal(t, 1.0, s.Score("Naipes", "NAIPES"))

	big := NewScorer(5)
	assert.LessOrEqual(t, big.Score("naipes", "naipes estilo español"), 1.0)
}

func TestScoreEmptyTargetGetsNoBonus(t *testing.T) {
	s := NewScorer(DefaultPartialBonus)
	assert.Equal(t, 0.0, s.Score("", "anything"))
}

// --- Locator ---

const catalogPage = `<!DOCTYPE html>
<html><body>
<div class="grid">
  <div class="product"><img src="https://x/naipes.jpg"><h2>Naipes</h2></div>
  <div class="product"><img src="/img/libreta.jpg"><h2>Libreta Parques Nacionales</h2></div>
</div>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newTestLocator(threshold float64) *Locator {
	cfg := config.DefaultConfig().Matcher
	cfg.Threshold = threshold
	return NewLocator(cfg, testLogger)
}

func TestLocateFindsFirstBestElement(t *testing.T) {
	doc := mustDoc(t, catalogPage)
	res := newTestLocator(0.7).Locate("Naipes", doc)

	require.True(t, res.Found)
	assert.Equal(t, 1.0, res.Score)
	// The product container and its heading tie; document order keeps the container.
	assert.Equal(t, "div", goquery.NodeName(res.Selection))
	assert.True(t, res.Selection.HasClass("product"))
	assert.Equal(t, 1, res.Selection.Find("img").Length())
}

func TestLocatePrefersExactHeadingOverClampedContainer(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="card"><h3>Naipes Españoles</h3> $20</div></body></html>`)

	// Both elements reach 1 after clamping; the heading's raw score is higher.
	res := newTestLocator(0.7).Locate("Naipes Españoles", doc)
	require.True(t, res.Found)
	assert.Equal(t, "h3", goquery.NodeName(res.Selection))
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, 1.0, res.Best)
}

func TestLocateNotFound(t *testing.T) {
	doc := mustDoc(t, catalogPage)
	res := newTestLocator(0.7).Locate("Agenda 2025", doc)

	assert.False(t, res.Found)
	assert.Nil(t, res.Selection)
	assert.Less(t, res.Best, 0.7)
}

func TestLocateThresholdIsStrict(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>abcxyz</p></body></html>`)

	atThreshold := newTestLocator(0.5).Locate("abcdef", doc)
	assert.False(t, atThreshold.Found, "score equal to threshold must not match")
	assert.InDelta(t, 0.5, atThreshold.Best, 1e-9)

	below := newTestLocator(0.49).Locate("abcdef", doc)
	assert.True(t, below.Found)
}

func TestLocateTextWindow(t *testing.T) {
	cfg := config.DefaultConfig().Matcher
	cfg.Threshold = 0.7
	cfg.MaxTextLen = 10
	loc := NewLocator(cfg, testLogger)

	doc := mustDoc(t, `<html><body>
<div><span>Nai</span><p>Naipes</p> plus a long run of unrelated text</div>
</body></html>`)

	res := loc.Locate("Naipes", doc)
	require.True(t, res.Found)
	assert.Equal(t, "p", goquery.NodeName(res.Selection))
}

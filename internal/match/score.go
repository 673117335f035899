package match

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// DefaultPartialBonus is added when a candidate contains the target's first
// token.
const DefaultPartialBonus = 0.2

// Distance returns the unit-cost edit distance (insert, delete, substitute)
// between a and b, measured in runes.
func Distance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Similarity returns (max(|a|,|b|) - Distance(a,b)) / max(|a|,|b|), or 1 when
// both strings are empty. The result is symmetric and lies in [0, 1].
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	return float64(longest-Distance(a, b)) / float64(longest)
}

// Scorer computes match scores between a catalog name and page text.
type Scorer struct {
	PartialBonus float64
}

// NewScorer creates a Scorer with the given partial-match bonus.
func NewScorer(partialBonus float64) *Scorer {
	return &Scorer{PartialBonus: partialBonus}
}

// Score normalizes both strings and returns their similarity, plus the
// partial bonus when the candidate contains the target's first token.
// The result is clamped to 1.
func (s *Scorer) Score(target, candidate string) float64 {
	return s.scoreNormalized(Normalize(target), Normalize(candidate))
}

func (s *Scorer) scoreNormalized(target, candidate string) float64 {
	return min(s.rawScore(target, candidate), 1.0)
}

// rawScore is the unclamped score of two normalized strings. Ranking uses it
// so a close match with the bonus still beats a looser one that also
// reaches 1 after clamping.
func (s *Scorer) rawScore(target, candidate string) float64 {
	score := Similarity(target, candidate)
	if token := firstToken(target); token != "" && strings.Contains(candidate, token) {
		score += s.PartialBonus
	}
	return score
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

package similarity

import (
	"strings"
	"unicode/utf8"
)

// TokenSet scores strings by comparing their token sets. A string whose tokens
// are all contained in the other's scores 100 ("Acme Ltd" vs "Acme Trading
// Ltd"); otherwise the score is the best Indel ratio between the shared tokens
// and the shared tokens extended with either side's remainder.
type TokenSet struct{}

var _ Preparer = TokenSet{}

// Score implements Scorer.
func (t TokenSet) Score(a, b string) float64 {
	return t.ScorePrepared(Prepare(a), Prepare(b))
}

// Prepare implements Preparer.
func (TokenSet) Prepare(s string) Prepared {
	return Prepare(s)
}

// ScorePrepared implements Preparer.
func (TokenSet) ScorePrepared(a, b Prepared) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}

	sect, onlyA, onlyB := splitSets(a.tokens, b.tokens)
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	diffA := strings.Join(onlyA, " ")
	diffB := strings.Join(onlyB, " ")
	lenA := utf8.RuneCountInString(diffA)
	lenB := utf8.RuneCountInString(diffB)

	sectLen := 0
	sep := 0
	if len(sect) > 0 {
		sectLen = utf8.RuneCountInString(strings.Join(sect, " "))
		sep = 1
	}
	sectALen := sectLen + sep + lenA
	sectBLen := sectLen + sep + lenB

	// The shared prefix cancels out, so the distance between the two
	// extended strings is the distance between the two remainders.
	best := normalizedSimilarity(indelDistance(diffA, diffB), sectALen+sectBLen)
	if sectLen == 0 {
		return best
	}

	best = max(best,
		normalizedSimilarity(sep+lenA, sectLen+sectALen),
		normalizedSimilarity(sep+lenB, sectLen+sectBLen),
	)
	return best
}

// Ratio is the normalized Indel similarity of a and b on a 0..100 scale,
// compared rune by rune without any pre-processing.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return normalizedSimilarity(indelDistance(a, b), total)
}

func normalizedSimilarity(distance, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 - 100*float64(distance)/float64(total)
}

// indelDistance is the minimum number of insertions and deletions turning a
// into b: len(a) + len(b) - 2*LCS(a, b).
func indelDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return len(ra) + len(rb) - 2*prev[len(rb)]
}

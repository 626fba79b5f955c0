// Package similarity scores pairs of names for approximate equality.
//
// Scores are on a 0..100 scale. The matching policy is "score >= threshold",
// see IsMatch. Every Scorer in this package is case-insensitive, symmetric and
// deterministic.
package similarity

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultThreshold is the pipeline-wide match threshold.
const DefaultThreshold = 85.0

// Scorer computes a similarity score in [0, 100] for two strings.
type Scorer interface {
	Score(a, b string) float64
}

// Prepared is a string pre-processed for repeated scoring: lower-cased,
// split on whitespace, deduplicated and sorted.
type Prepared struct {
	tokens []string
}

// Empty reports whether the prepared string has no tokens.
func (p Prepared) Empty() bool {
	return len(p.tokens) == 0
}

// Preparer is implemented by scorers that can pre-process each side once and
// score the prepared values many times. ScorePrepared(Prepare(a), Prepare(b))
// must equal Score(a, b).
type Preparer interface {
	Scorer
	Prepare(s string) Prepared
	ScorePrepared(a, b Prepared) float64
}

// Prepare lower-cases s and returns its sorted set of whitespace tokens.
func Prepare(s string) Prepared {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return Prepared{}
	}
	sort.Strings(fields)
	uniq := fields[:1]
	for _, f := range fields[1:] {
		if f != uniq[len(uniq)-1] {
			uniq = append(uniq, f)
		}
	}
	return Prepared{tokens: uniq}
}

// IsMatch reports whether s scores a and b at or above threshold.
func IsMatch(s Scorer, a, b string, threshold float64) bool {
	return s.Score(a, b) >= threshold
}

// Scorer names accepted by ByName.
const (
	NameTokenSet     = "token_set"
	NameTokenJaccard = "token_jaccard"
)

// ByName returns the scorer registered under name. An empty name selects the
// default token-set scorer.
func ByName(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameTokenSet:
		return TokenSet{}, nil
	case NameTokenJaccard:
		return TokenJaccard{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity scorer %q (expected %q or %q)", name, NameTokenSet, NameTokenJaccard)
	}
}

// splitSets walks two sorted token slices and returns their intersection and
// the tokens found on one side only.
func splitSets(a, b []string) (sect []string, onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			sect = append(sect, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return sect, onlyA, onlyB
}

package similarity

// TokenJaccard scores strings by the Jaccard index of their lower-cased token
// sets, scaled to 0..100. It is stricter than TokenSet: extra tokens on either
// side always lower the score.
type TokenJaccard struct{}

var _ Preparer = TokenJaccard{}

// Score implements Scorer.
func (j TokenJaccard) Score(a, b string) float64 {
	return j.ScorePrepared(Prepare(a), Prepare(b))
}

// Prepare implements Preparer.
func (TokenJaccard) Prepare(s string) Prepared {
	return Prepare(s)
}

// ScorePrepared implements Preparer.
func (TokenJaccard) ScorePrepared(a, b Prepared) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	sect, onlyA, onlyB := splitSets(a.tokens, b.tokens)
	union := len(sect) + len(onlyA) + len(onlyB)
	return 100 * float64(len(sect)) / float64(union)
}

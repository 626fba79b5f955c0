package similarity

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSet_Score(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "Acme Trading Ltd", "Acme Trading Ltd", 100},
		{"case insensitive", "Acme Trading Ltd", "ACME TRADING LTD", 100},
		{"token order", "Acme Trading Ltd", "Ltd Trading Acme", 100},
		{"subset", "Acme Trading Ltd", "Trading Ltd Acme International", 100},
		{"duplicates", "Best Best Co", "Best Co", 100},
		{"empty left", "", "Acme", 0},
		{"blank right", "Acme", "   ", 0},
		{"disjoint", "Acme Trading Ltd", "Best Co International", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSet{}.Score(tt.a, tt.b)
			if tt.want == 0 {
				assert.Less(t, got, 50.0)
				return
			}
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestTokenSet_PartialOverlap(t *testing.T) {
	// shared "acme", remainders "holdings" vs "holding"
	score := TokenSet{}.Score("Acme Holdings", "Acme Holding")
	assert.Greater(t, score, 90.0)
	assert.Less(t, score, 100.0)

	// punctuation differences still score high without any shared token
	score = TokenSet{}.Score("acme.", "acme")
	assert.InDelta(t, 100-100.0/9, score, 0.0001)
}

func TestTokenSet_KnownValue(t *testing.T) {
	// sect="fuzzy was", diffA="a bear", diffB="wuzzy"; the best ratio comes
	// from comparing the remainders on top of the shared prefix.
	score := TokenSet{}.Score("fuzzy was a bear", "fuzzy fuzzy was a bear")
	assert.InDelta(t, 100, score, 0.0001)

	score = TokenSet{}.Score("new york mets", "new york yankees")
	// sect "new york" (8), diffA "mets" (4), diffB "yankees" (7)
	// sect vs sect+mets: distance 5 over 8+13
	assert.InDelta(t, 100-100.0*5/21, score, 0.0001)
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 100, Ratio("", ""), 0.0001)
	assert.InDelta(t, 0, Ratio("abc", ""), 0.0001)
	assert.InDelta(t, 100, Ratio("abc", "abc"), 0.0001)
	// LCS("abcd", "abed") = 3 -> distance 2 over 8
	assert.InDelta(t, 75, Ratio("abcd", "abed"), 0.0001)
	assert.InDelta(t, Ratio("кошка", "кошки"), Ratio("кошки", "кошка"), 0.0001)
}

func TestScorers_Properties(t *testing.T) {
	faker := gofakeit.New(7)
	scorers := map[string]Scorer{
		NameTokenSet:     TokenSet{},
		NameTokenJaccard: TokenJaccard{},
	}

	for name, scorer := range scorers {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 300; i++ {
				a := faker.Company()
				b := faker.Company()
				if i%3 == 0 {
					b = a + " " + faker.CompanySuffix()
				}
				threshold := float64(faker.Number(0, 100))

				assert.Equal(t, IsMatch(scorer, a, b, threshold), IsMatch(scorer, b, a, threshold),
					"not symmetric: %q / %q at %v", a, b, threshold)
				assert.True(t, IsMatch(scorer, a, a, threshold), "not reflexive: %q at %v", a, threshold)
				assert.Equal(t, scorer.Score(a, b), scorer.Score(a, b), "not deterministic")

				score := scorer.Score(a, b)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			}
		})
	}
}

func TestPreparer_MatchesScore(t *testing.T) {
	pairs := [][2]string{
		{"Acme Trading Ltd", "ACME TRADING LTD"},
		{"Best Co", "Best Co International"},
		{"Acme Trading Ltd", "Best Co International"},
		{"Rosneft Oil Company", "Rosneft"},
		{"", "x"},
	}
	for _, scorer := range []Preparer{TokenSet{}, TokenJaccard{}} {
		for _, p := range pairs {
			want := scorer.Score(p[0], p[1])
			got := scorer.ScorePrepared(scorer.Prepare(p[0]), scorer.Prepare(p[1]))
			assert.InDelta(t, want, got, 0.0001)
		}
	}
}

func TestTokenJaccard_Score(t *testing.T) {
	s := TokenJaccard{}
	assert.InDelta(t, 100, s.Score("Acme Ltd", "ltd ACME"), 0.0001)
	assert.InDelta(t, 50, s.Score("Acme Ltd", "Acme Trading Ltd International"), 0.0001)
	assert.InDelta(t, 0, s.Score("Acme", "Best"), 0.0001)
	assert.InDelta(t, 0, s.Score("", ""), 0.0001)
}

func TestPrepare(t *testing.T) {
	p := Prepare("  Beta alpha BETA  gamma ")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, p.tokens)
	assert.True(t, Prepare(" \t ").Empty())
}

func TestByName(t *testing.T) {
	s, err := ByName("")
	require.NoError(t, err)
	assert.IsType(t, TokenSet{}, s)

	s, err = ByName("Token_Jaccard")
	require.NoError(t, err)
	assert.IsType(t, TokenJaccard{}, s)

	_, err = ByName("partial_ratio")
	assert.Error(t, err)
}

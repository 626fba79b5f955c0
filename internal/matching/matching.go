// Package matching tests one source's candidates against the full list of
// screened names.
package matching

import (
	"sort"
	"strings"

	"github.com/13maks37/sanctions-checker/internal/similarity"
)

// Set is the subset of queries that matched a source.
type Set map[string]struct{}

// Has reports whether query is in the set.
func (s Set) Has(query string) bool {
	_, ok := s[query]
	return ok
}

// Len returns the number of matched queries.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for q := range s {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// Engine matches queries against candidates with a scorer and threshold.
// A zero Engine uses the token-set scorer and the default threshold. An
// Engine built by New always uses the threshold it was given, including 0.
type Engine struct {
	Scorer    similarity.Scorer
	Threshold float64

	thresholdSet bool
}

// New returns an Engine for scorer and threshold.
func New(scorer similarity.Scorer, threshold float64) *Engine {
	return &Engine{Scorer: scorer, Threshold: threshold, thresholdSet: true}
}

func (e *Engine) scorer() similarity.Scorer {
	if e.Scorer == nil {
		return similarity.TokenSet{}
	}
	return e.Scorer
}

func (e *Engine) threshold() float64 {
	if e.Threshold == 0 && !e.thresholdSet {
		return similarity.DefaultThreshold
	}
	return e.Threshold
}

// Match returns every query that scores at or above the threshold against at
// least one candidate. The first qualifying candidate ends the scan for that
// query. Blank queries never match.
func (e *Engine) Match(queries, candidates []string) Set {
	out := Set{}
	if len(queries) == 0 || len(candidates) == 0 {
		return out
	}

	scorer := e.scorer()
	threshold := e.threshold()

	if p, ok := scorer.(similarity.Preparer); ok {
		prepared := make([]similarity.Prepared, 0, len(candidates))
		for _, c := range candidates {
			if pc := p.Prepare(c); !pc.Empty() {
				prepared = append(prepared, pc)
			}
		}
		for _, q := range queries {
			if out.Has(q) {
				continue
			}
			pq := p.Prepare(q)
			if pq.Empty() {
				continue
			}
			for _, pc := range prepared {
				if p.ScorePrepared(pq, pc) >= threshold {
					out[q] = struct{}{}
					break
				}
			}
		}
		return out
	}

	for _, q := range queries {
		if out.Has(q) || strings.TrimSpace(q) == "" {
			continue
		}
		for _, c := range candidates {
			if similarity.IsMatch(scorer, q, c, threshold) {
				out[q] = struct{}{}
				break
			}
		}
	}
	return out
}

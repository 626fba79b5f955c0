// Package types provides the data shared by the screening pipeline, its
// report writers and the run store.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"

	"github.com/13maks37/sanctions-checker/internal/normalize"
)

// Summary texts of a report row.
const (
	SummaryClean  = "No sanctions found"
	summaryPrefix = "Sanctions found in: "
)

// Company is one screened name. Normalized is derived from Original only.
type Company struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
}

// NewCompany normalizes original.
func NewCompany(original string) Company {
	return Company{Original: original, Normalized: normalize.Name(original)}
}

// NewCompanies normalizes every name, keeping input order.
func NewCompanies(names []string) []Company {
	out := make([]Company, len(names))
	for i, n := range names {
		out[i] = NewCompany(n)
	}
	return out
}

// MatchResult is one cell of the report matrix.
type MatchResult struct {
	Source  string `json:"source"`
	Company string `json:"company"`
	Matched bool   `json:"matched"`
}

// SourceStatus records how one source fared during a run. A source that
// could not be fetched or parsed is unavailable and matched nothing.
type SourceStatus struct {
	Name       string        `json:"name"`
	Available  bool          `json:"available"`
	Candidates int           `json:"candidates"`
	Matches    int           `json:"matches"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// ScreeningReport is the outcome of a run: for every company and every
// source, whether the company's normalized name matched that source.
type ScreeningReport struct {
	CreatedAt time.Time `json:"created_at"`
	Threshold float64   `json:"threshold"`
	Companies []Company `json:"companies"`
	Sources   []string  `json:"sources"`
	// Matches is keyed by normalized company name, then source name.
	Matches  map[string]map[string]bool `json:"matches"`
	Summary  map[string]string          `json:"summary"`
	Statuses []SourceStatus             `json:"source_status"`
}

// NewScreeningReport returns a report with every cell set to false.
func NewScreeningReport(companies []Company, sourceNames []string) *ScreeningReport {
	r := &ScreeningReport{
		Companies: companies,
		Sources:   sourceNames,
		Matches:   make(map[string]map[string]bool, len(companies)),
		Summary:   make(map[string]string, len(companies)),
	}
	for _, c := range companies {
		if _, ok := r.Matches[c.Normalized]; ok {
			continue
		}
		row := make(map[string]bool, len(sourceNames))
		for _, s := range sourceNames {
			row[s] = false
		}
		r.Matches[c.Normalized] = row
		r.Summary[c.Normalized] = SummaryClean
	}
	return r
}

// Matched reports whether c matched source.
func (r *ScreeningReport) Matched(c Company, source string) bool {
	return r.Matches[c.Normalized][source]
}

// MatchedSources returns the sources c matched, in report source order.
func (r *ScreeningReport) MatchedSources(c Company) []string {
	var out []string
	for _, s := range r.Sources {
		if r.Matched(c, s) {
			out = append(out, s)
		}
	}
	return out
}

// Summarize derives the summary text of every company from the matrix.
func (r *ScreeningReport) Summarize() {
	if r.Summary == nil {
		r.Summary = make(map[string]string, len(r.Companies))
	}
	for _, c := range r.Companies {
		r.Summary[c.Normalized] = SummaryText(r.MatchedSources(c))
	}
}

// SummaryText renders the summary of a company that matched sources.
func SummaryText(sources []string) string {
	if len(sources) == 0 {
		return SummaryClean
	}
	return summaryPrefix + strings.Join(sources, ", ")
}

// SummaryFor returns the summary text of c.
func (r *ScreeningReport) SummaryFor(c Company) string {
	if s, ok := r.Summary[c.Normalized]; ok {
		return s
	}
	return SummaryText(r.MatchedSources(c))
}

// Results flattens the matrix row by row.
func (r *ScreeningReport) Results() []MatchResult {
	out := make([]MatchResult, 0, len(r.Companies)*len(r.Sources))
	for _, c := range r.Companies {
		for _, s := range r.Sources {
			out = append(out, MatchResult{Source: s, Company: c.Normalized, Matched: r.Matched(c, s)})
		}
	}
	return out
}

// Status returns the status of source, if recorded.
func (r *ScreeningReport) Status(source string) (SourceStatus, bool) {
	for _, st := range r.Statuses {
		if st.Name == source {
			return st, true
		}
	}
	return SourceStatus{}, false
}

// FlaggedCount returns how many companies matched at least one source.
func (r *ScreeningReport) FlaggedCount() int {
	n := 0
	for _, c := range r.Companies {
		if len(r.MatchedSources(c)) > 0 {
			n++
		}
	}
	return n
}

// UnavailableSources returns the names of sources that failed during the run.
func (r *ScreeningReport) UnavailableSources() []string {
	var out []string
	for _, st := range r.Statuses {
		if !st.Available {
			out = append(out, st.Name)
		}
	}
	return out
}

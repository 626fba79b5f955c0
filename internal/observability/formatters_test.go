package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/13maks37/sanctions-checker/internal/pipeline"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/types"
)

func sampleReport() *types.ScreeningReport {
	rep := types.NewScreeningReport(
		types.NewCompanies([]string{"Acme Trading (UK) Ltd", "Best Co"}),
		[]string{"OFAC", "UK"},
	)
	rep.Threshold = 85
	rep.Matches["Acme Trading Ltd"]["OFAC"] = true
	rep.Statuses = []types.SourceStatus{
		{Name: "OFAC", Available: true, Candidates: 12000, Matches: 1, Duration: 1500 * time.Millisecond},
		{Name: "UK", Error: "fetch https://uk.example: HTTP 503"},
	}
	rep.Summarize()
	return rep
}

func assertBoxLines(t *testing.T, output string) {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintReport(sampleReport())
	output := buf.String()

	assert.Contains(t, output, "SCREENING REPORT")
	assert.Contains(t, output, "Companies screened: 2")
	assert.Contains(t, output, "Flagged:            1")
	assert.Contains(t, output, "Unavailable:        UK")
	assert.Contains(t, output, "• Acme Trading (UK) Ltd")
	assert.NotContains(t, output, "Best Co")
	assertBoxLines(t, output)
}

func TestPrintReport_ManyFlagged(t *testing.T) {
	names := make([]string, 15)
	for i := range names {
		names[i] = fmt.Sprintf("Company %02d", i)
	}
	rep := types.NewScreeningReport(types.NewCompanies(names), []string{"OFAC"})
	for _, c := range rep.Companies {
		rep.Matches[c.Normalized]["OFAC"] = true
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintReport(rep)
	assert.Contains(t, buf.String(), "... and 5 more")
	assert.NotContains(t, buf.String(), "Company 14")
}

func TestPrintReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintSourceStatus(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSourceStatus(sampleReport())
	output := buf.String()

	assert.Contains(t, output, "✓ OFAC")
	assert.Contains(t, output, "12000 names")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "✗ UK")
	assert.Contains(t, output, "HTTP 503")
	assertBoxLines(t, output)
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSources(sources.Defaults())
	output := buf.String()

	assert.Contains(t, output, "SOURCES (7)")
	assert.Contains(t, output, "EU-SanctionsMap")
	assert.Contains(t, output, "[browser]")
	assertBoxLines(t, output)

	buf.Reset()
	NewPrinter(&buf).PrintSources(nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesByRune(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("é", 100))
	assert.Contains(t, buf.String(), "...")
	assertBoxLines(t, buf.String())
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintProgress(pipeline.ProgressEvent{State: pipeline.StateNormalizing, Message: "Normalizing 2 company names"})
	p.PrintProgress(pipeline.ProgressEvent{State: pipeline.StatePerSource, Source: "OFAC", Message: "12 candidates"})

	assert.Equal(t, "[normalizing] Normalizing 2 company names\n[per_source_processing] OFAC: 12 candidates\n", buf.String())
}

// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/13maks37/sanctions-checker/internal/pipeline"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to width runes. %-*s pads by bytes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintSources outputs the configured source table.
func (p *Printer) PrintSources(srcs []sources.Source) {
	if len(srcs) == 0 {
		return
	}

	var sb strings.Builder
	for i, src := range srcs {
		mode := ""
		if src.RenderJS {
			mode = " [browser]"
		}
		fmt.Fprintf(&sb, "%-16s %s %s%s\n", src.Name, src.Format, sources.Describe(src.Schema), mode)
		fmt.Fprintf(&sb, "  %s", src.URL)
		if i < len(srcs)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("SOURCES (%d)", len(srcs)), sb.String())
}

// PrintSourceStatus outputs how every source fared during a run.
func (p *Printer) PrintSourceStatus(report *types.ScreeningReport) {
	if report == nil || len(report.Statuses) == 0 {
		return
	}

	var sb strings.Builder
	for i, st := range report.Statuses {
		if st.Available {
			fmt.Fprintf(&sb, "✓ %-16s %6d names  %3d hits  %s",
				st.Name, st.Candidates, st.Matches, st.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&sb, "✗ %-16s unavailable\n", st.Name)
			fmt.Fprintf(&sb, "    %s", st.Error)
		}
		if i < len(report.Statuses)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("SOURCE STATUS", sb.String())
}

// PrintReport outputs the screening summary: totals and the flagged
// companies with the sources they matched.
func (p *Printer) PrintReport(report *types.ScreeningReport) {
	if report == nil {
		return
	}

	flagged := report.FlaggedCount()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Companies screened: %d\n", len(report.Companies))
	fmt.Fprintf(&sb, "Sources:            %d\n", len(report.Sources))
	fmt.Fprintf(&sb, "Threshold:          %.0f\n", report.Threshold)
	fmt.Fprintf(&sb, "Flagged:            %d", flagged)
	if down := report.UnavailableSources(); len(down) > 0 {
		fmt.Fprintf(&sb, "\nUnavailable:        %s", strings.Join(down, ", "))
	}

	if flagged > 0 {
		sb.WriteString("\n\nFlagged companies:\n")
		shown := 0
		for _, c := range report.Companies {
			matched := report.MatchedSources(c)
			if len(matched) == 0 {
				continue
			}
			if shown == maxItemsToShow {
				fmt.Fprintf(&sb, "  ... and %d more\n", flagged-shown)
				break
			}
			fmt.Fprintf(&sb, "  • %s\n", c.Original)
			fmt.Fprintf(&sb, "    %s\n", strings.Join(matched, ", "))
			shown++
		}
	}

	p.printBox("SCREENING REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs one pipeline progress event as a single line.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintProgress(ev pipeline.ProgressEvent) {
	if ev.Source != "" {
		fmt.Fprintf(p.out, "[%s] %s: %s\n", ev.State, ev.Source, ev.Message)
		return
	}
	fmt.Fprintf(p.out, "[%s] %s\n", ev.State, ev.Message)
}

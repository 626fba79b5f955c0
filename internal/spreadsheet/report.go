package spreadsheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/13maks37/sanctions-checker/internal/types"
)

// Sheet names and fixed headers of the report workbook.
const (
	ResultsSheet      = "Results"
	AvailabilitySheet = "Source availability"
	CompanyHeader     = "Company"
	InfoHeader        = "Sanctions Info"
)

// Cell values of the match matrix.
const (
	Yes = "Yes"
	No  = "No"
)

const (
	colorMatched = "#FFC7CE"
	colorClean   = "#C6EFCE"
	colorHeader  = "#D9D9D9"
)

type styles struct {
	header, matched, clean int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	s.matched, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorMatched}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create match style: %w", err)
	}
	s.clean, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorClean}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create clean style: %w", err)
	}
	return s, nil
}

// BuildReport renders rep as a workbook. The caller closes the file.
func BuildReport(rep *types.ScreeningReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeResults(f, rep, st); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeAvailability(f, rep, st); err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeResults(f *excelize.File, rep *types.ScreeningReport, st styles) error {
	headers := make([]any, 0, len(rep.Sources)+2)
	headers = append(headers, CompanyHeader)
	for _, s := range rep.Sources {
		headers = append(headers, s)
	}
	headers = append(headers, InfoHeader)

	if err := f.SetSheetRow(ResultsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(ResultsSheet, "A1", last, st.header); err != nil {
		return err
	}

	for i, c := range rep.Companies {
		row := i + 2
		values := make([]any, 0, len(headers))
		values = append(values, c.Original)
		for _, s := range rep.Sources {
			if rep.Matched(c, s) {
				values = append(values, Yes)
			} else {
				values = append(values, No)
			}
		}
		values = append(values, rep.SummaryFor(c))

		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(ResultsSheet, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		for j, s := range rep.Sources {
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			style := st.clean
			if rep.Matched(c, s) {
				style = st.matched
			}
			if err := f.SetCellStyle(ResultsSheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(ResultsSheet, "A", "A", 40)
	if len(rep.Sources) > 0 {
		firstSrc, _ := excelize.ColumnNumberToName(2)
		lastSrc, _ := excelize.ColumnNumberToName(len(rep.Sources) + 1)
		_ = f.SetColWidth(ResultsSheet, firstSrc, lastSrc, 16)
	}
	_ = f.SetColWidth(ResultsSheet, lastCol, lastCol, 60)
	return f.SetPanes(ResultsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeAvailability(f *excelize.File, rep *types.ScreeningReport, st styles) error {
	if _, err := f.NewSheet(AvailabilitySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	headers := []any{"Source", "Status", "Candidates", "Matches", "Duration (s)", "Error"}
	if err := f.SetSheetRow(AvailabilitySheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(AvailabilitySheet, "A1", "F1", st.header); err != nil {
		return err
	}

	for i, name := range rep.Sources {
		row := i + 2
		status, ok := rep.Status(name)
		state := "unknown"
		style := st.header
		if ok && status.Available {
			state, style = "available", st.clean
		} else if ok {
			state, style = "unavailable", st.matched
		}
		values := []any{name, state, status.Candidates, status.Matches, status.Duration.Round(time.Millisecond).Seconds(), status.Error}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(AvailabilitySheet, start, &values); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(AvailabilitySheet, cell, cell, style); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(AvailabilitySheet, "A", "A", 20)
	_ = f.SetColWidth(AvailabilitySheet, "F", "F", 80)
	return nil
}

// WriteReport writes rep as an xlsx workbook to w.
func WriteReport(w io.Writer, rep *types.ScreeningReport) error {
	f, err := BuildReport(rep)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveReport writes rep to path, creating parent directories.
func SaveReport(path string, rep *types.ScreeningReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := BuildReport(rep)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

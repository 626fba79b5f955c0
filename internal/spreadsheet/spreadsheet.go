// Package spreadsheet reads the company list a user uploads and writes the
// screening report workbook.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DefaultColumn is the header of the company-name column.
const DefaultColumn = "Company"

// ColumnNotFoundError reports a workbook without the company column.
type ColumnNotFoundError struct {
	Column string
	Sheet  string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found in sheet %q", e.Column, e.Sheet)
}

// ErrNoSheets is returned for workbooks without any sheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// UnsupportedFileMessage explains which workbooks can be read.
const UnsupportedFileMessage = "only .xlsx workbooks are supported; save legacy .xls files as .xlsx first"

// IsSupportedFile reports whether name has an Office Open XML workbook
// extension. Legacy binary .xls workbooks cannot be read.
func IsSupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadCompanies returns the non-empty values of the column whose header is
// column, from the first sheet, in row order. The header is matched trimmed
// and case-insensitively. Only Office Open XML workbooks can be read.
func ReadCompanies(r io.Reader, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &ColumnNotFoundError{Column: column, Sheet: sheet}
	}

	idx := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &ColumnNotFoundError{Column: column, Sheet: sheet}
	}

	companies := []string{}
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			companies = append(companies, v)
		}
	}
	return companies, nil
}

// ReportFileName returns the report file name for a run started at now.
func ReportFileName(now time.Time) string {
	return "sanctions_companies_" + now.Format("2006-01-02_15-04-05") + ".xlsx"
}

package extraction

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractCSV reads headerless CSV. column < 0 joins every cell of a row with
// a single space; otherwise only that column is taken.
func extractCSV(raw []byte, column int) ([]string, error) {
	rows, err := readCSV(raw)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		var candidate string
		if column < 0 {
			candidate = strings.Join(row, " ")
		} else if column < len(row) {
			candidate = row[column]
		}
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// readCSV parses raw as UTF-8 first and falls back to Windows-1252, a
// superset of Latin-1, when the bytes are not valid UTF-8 or do not parse.
func readCSV(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var utf8Err error
	if utf8.Valid(raw) {
		rows, err := parseCSV(raw)
		if err == nil {
			return rows, nil
		}
		utf8Err = err
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, &ParseError{Format: sources.FormatCSV, Message: "latin-1 decode failed", Cause: errors.Join(utf8Err, err)}
	}
	rows, err := parseCSV(decoded)
	if err != nil {
		return nil, &ParseError{Format: sources.FormatCSV, Message: "unparseable in utf-8 and latin-1", Cause: errors.Join(utf8Err, err)}
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

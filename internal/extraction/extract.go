// Package extraction pulls candidate name strings out of raw sanctions-list
// content. Each source format has its own reader; the source's schema selects
// which parts of the content become candidates.
//
// Extraction never deduplicates and keeps document order. Content without any
// matching element yields an empty slice, not an error.
package extraction

import (
	"errors"
	"strings"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// Extract returns the candidates of src found in raw.
func Extract(raw []byte, src sources.Source) ([]string, error) {
	out, err := ExtractSchema(raw, src.Format, src.Schema)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) && perr.Source == "" {
			perr.Source = src.Name
		}
		var cerr *sources.ConfigError
		if errors.As(err, &cerr) && cerr.Source == "" {
			cerr.Source = src.Name
		}
		return nil, err
	}
	return out, nil
}

// ExtractSchema returns the candidates selected by schema from raw content of
// the given format.
func ExtractSchema(raw []byte, format sources.Format, schema sources.Schema) ([]string, error) {
	if schema == nil {
		return nil, &sources.ConfigError{Message: "no extraction schema"}
	}
	if schema.Format() != format {
		return nil, &sources.ConfigError{Message: "schema " + schema.Kind() + " cannot read " + string(format) + " content"}
	}

	switch s := schema.(type) {
	case sources.AllColumns:
		return extractCSV(raw, -1)
	case sources.Column:
		return extractCSV(raw, s.Index)
	case sources.XMLText:
		return extractXMLText(raw)
	case sources.XMLPath:
		return extractXMLPath(raw, s.Path)
	case sources.XMLRecords:
		return extractXMLRecords(raw, s.Records)
	case sources.HTMLSelector:
		return extractHTMLSelector(raw, s.Selector, s.Attr)
	case sources.HTMLLines:
		return nonEmptyLines(htmlString(raw)), nil
	case sources.HTMLText:
		return extractHTMLText(raw)
	default:
		return nil, &sources.ConfigError{Message: "unsupported schema " + schema.Kind()}
	}
}

// nonEmptyLines splits text on any line boundary and keeps trimmed,
// non-empty lines.
func nonEmptyLines(text string) []string {
	fields := strings.FieldsFunc(text, isLineBreak)
	out := make([]string, 0, len(fields))
	for _, line := range fields {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// Package sources describes the sanctions lists a screening run reads: where
// each list lives, its content format, and how candidate names are pulled out
// of it.
package sources

import (
	"fmt"
	"strings"
)

// Format is the content format of a source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
	FormatHTML Format = "html"
)

// ParseFormat accepts a format name or file extension ("csv", ".XML").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatCSV, FormatXML, FormatHTML:
		return f, nil
	case "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown source format %q", s)
}

// Ext returns the file extension used for downloaded copies.
func (f Format) Ext() string {
	return "." + string(f)
}

// Schema is the extraction strategy of one source. The set of
// implementations is closed; extraction dispatches on the concrete type.
type Schema interface {
	// Kind is the configuration name of the strategy.
	Kind() string
	// Format is the only content format the strategy can read.
	Format() Format
	schema()
}

// Schema kinds as they appear in configuration files.
const (
	KindAllColumns   = "all_columns"
	KindColumn       = "column"
	KindXMLText      = "xml_text"
	KindXMLPath      = "xml_path"
	KindXMLRecords   = "xml_records"
	KindHTMLSelector = "html_selector"
	KindHTMLLines    = "html_lines"
	KindHTMLText     = "html_text"
)

// AllColumns joins every cell of a CSV row into one candidate.
type AllColumns struct{}

// Column takes a single zero-based CSV column as the candidate.
type Column struct {
	Index int
}

// XMLText flattens the whole XML document to text; every non-empty line is
// a candidate.
type XMLText struct{}

// XMLPath collects the text of nodes reached by Path, where Path[0] may occur
// at any depth below the root and each following segment is a direct child.
type XMLPath struct {
	Path []string
}

// XMLRecords collects named fields and alias entries per record element.
type XMLRecords struct {
	Records []RecordSpec
}

// RecordSpec describes one kind of record in a structured XML list.
type RecordSpec struct {
	// Element is the record element name, matched at any depth.
	Element string `json:"element" yaml:"element" validate:"required"`
	// Fields are direct children whose text is a candidate.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Alias is the direct child element holding one alias.
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
	// AliasField is the child of Alias that holds the alias name.
	AliasField string `json:"alias_field,omitempty" yaml:"alias_field,omitempty"`
}

// HTMLSelector takes the Attr attribute of every element matching the CSS
// Selector.
type HTMLSelector struct {
	Selector string
	Attr     string
}

// HTMLLines treats every non-empty line of the raw page as a candidate.
type HTMLLines struct{}

// HTMLText converts the page to Markdown text first; every non-empty line of
// the text is a candidate.
type HTMLText struct{}

func (AllColumns) Kind() string   { return KindAllColumns }
func (Column) Kind() string       { return KindColumn }
func (XMLText) Kind() string      { return KindXMLText }
func (XMLPath) Kind() string      { return KindXMLPath }
func (XMLRecords) Kind() string   { return KindXMLRecords }
func (HTMLSelector) Kind() string { return KindHTMLSelector }
func (HTMLLines) Kind() string    { return KindHTMLLines }
func (HTMLText) Kind() string     { return KindHTMLText }

func (AllColumns) Format() Format   { return FormatCSV }
func (Column) Format() Format       { return FormatCSV }
func (XMLText) Format() Format      { return FormatXML }
func (XMLPath) Format() Format      { return FormatXML }
func (XMLRecords) Format() Format   { return FormatXML }
func (HTMLSelector) Format() Format { return FormatHTML }
func (HTMLLines) Format() Format    { return FormatHTML }
func (HTMLText) Format() Format     { return FormatHTML }

func (AllColumns) schema()   {}
func (Column) schema()       {}
func (XMLText) schema()      {}
func (XMLPath) schema()      {}
func (XMLRecords) schema()   {}
func (HTMLSelector) schema() {}
func (HTMLLines) schema()    {}
func (HTMLText) schema()     {}

// DefaultSchema returns the generic strategy for a format.
func DefaultSchema(f Format) Schema {
	switch f {
	case FormatCSV:
		return AllColumns{}
	case FormatXML:
		return XMLText{}
	case FormatHTML:
		return HTMLLines{}
	}
	return nil
}

// Describe renders a schema for listings, e.g. "column(1)".
func Describe(s Schema) string {
	switch v := s.(type) {
	case nil:
		return "<none>"
	case Column:
		return fmt.Sprintf("%s(%d)", v.Kind(), v.Index)
	case XMLPath:
		return fmt.Sprintf("%s(%s)", v.Kind(), strings.Join(v.Path, "/"))
	case XMLRecords:
		elems := make([]string, len(v.Records))
		for i, r := range v.Records {
			elems[i] = r.Element
		}
		return fmt.Sprintf("%s(%s)", v.Kind(), strings.Join(elems, ","))
	case HTMLSelector:
		return fmt.Sprintf("%s(%s@%s)", v.Kind(), v.Selector, v.Attr)
	default:
		return s.Kind()
	}
}

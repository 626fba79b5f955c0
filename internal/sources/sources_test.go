package sources

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	srcs := Defaults()
	require.NoError(t, ValidateAll(srcs))
	assert.Equal(t, []string{"OFAC", "EU", "UK", "UN", "EU-Tracker", "EU-SanctionsMap", "UN-SC"}, Names(srcs))

	byName := map[string]Source{}
	for _, s := range srcs {
		byName[s.Name] = s
	}
	assert.Equal(t, Column{Index: 1}, byName["OFAC"].Schema)
	assert.Equal(t, XMLPath{Path: []string{"Names", "Name", "Name6"}}, byName["UK"].Schema)
	assert.IsType(t, XMLText{}, byName["EU"].Schema)
	assert.IsType(t, XMLRecords{}, byName["UN"].Schema)
	assert.Equal(t, HTMLSelector{Selector: "ul li a[title]", Attr: "title"}, byName["EU-Tracker"].Schema)
	assert.True(t, byName["EU-SanctionsMap"].RenderJS)
}

func TestValidate_Errors(t *testing.T) {
	base := Source{Name: "X", URL: "https://example.com/list.csv", Format: FormatCSV, Schema: AllColumns{}}
	require.NoError(t, Validate(base))

	tests := []struct {
		name   string
		mutate func(*Source)
	}{
		{"empty name", func(s *Source) { s.Name = " " }},
		{"bad url", func(s *Source) { s.URL = "not a url" }},
		{"ftp url", func(s *Source) { s.URL = "ftp://example.com/x" }},
		{"unknown format", func(s *Source) { s.Format = "pdf" }},
		{"nil schema", func(s *Source) { s.Schema = nil }},
		{"format mismatch", func(s *Source) { s.Schema = XMLText{} }},
		{"negative column", func(s *Source) { s.Schema = Column{Index: -1} }},
		{"render js on csv", func(s *Source) { s.RenderJS = true }},
		{"empty xml path", func(s *Source) { s.Format = FormatXML; s.Schema = XMLPath{} }},
		{"blank xml segment", func(s *Source) { s.Format = FormatXML; s.Schema = XMLPath{Path: []string{"A", ""}} }},
		{"no records", func(s *Source) { s.Format = FormatXML; s.Schema = XMLRecords{} }},
		{"alias without field", func(s *Source) {
			s.Format = FormatXML
			s.Schema = XMLRecords{Records: []RecordSpec{{Element: "E", Alias: "A"}}}
		}},
		{"bad selector", func(s *Source) { s.Format = FormatHTML; s.Schema = HTMLSelector{Selector: "ul[", Attr: "title"} }},
		{"selector without attr", func(s *Source) { s.Format = FormatHTML; s.Schema = HTMLSelector{Selector: "a"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := base
			tt.mutate(&src)
			err := Validate(src)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestValidateAll_Duplicates(t *testing.T) {
	s := Source{Name: "A", URL: "https://example.com", Format: FormatHTML, Schema: HTMLLines{}}
	err := ValidateAll([]Source{s, s})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	assert.Error(t, ValidateAll(nil))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, ".XML": FormatXML, "html": FormatHTML, ".htm": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, ".csv", FormatCSV.Ext())
}

func TestParseSchema(t *testing.T) {
	one := 1

	s, err := ParseSchema(FormatCSV, nil)
	require.NoError(t, err)
	assert.Equal(t, AllColumns{}, s)

	s, err = ParseSchema(FormatCSV, &SchemaSpec{Kind: "column", Column: &one})
	require.NoError(t, err)
	assert.Equal(t, Column{Index: 1}, s)

	s, err = ParseSchema(FormatXML, &SchemaSpec{Kind: "xml_path", Path: ".//Names/Name/Name6"})
	require.NoError(t, err)
	assert.Equal(t, XMLPath{Path: []string{"Names", "Name", "Name6"}}, s)

	s, err = ParseSchema(FormatHTML, &SchemaSpec{Kind: "html_selector", Selector: "ul li a[title]"})
	require.NoError(t, err)
	assert.Equal(t, HTMLSelector{Selector: "ul li a[title]", Attr: "title"}, s)

	_, err = ParseSchema(FormatCSV, &SchemaSpec{Kind: "column"})
	assert.Error(t, err)
	_, err = ParseSchema(FormatCSV, &SchemaSpec{Kind: "html_lines"})
	assert.Error(t, err)
	_, err = ParseSchema(FormatXML, &SchemaSpec{Kind: "xml_path", Path: ".//"})
	assert.Error(t, err)
	_, err = ParseSchema(FormatXML, &SchemaSpec{Kind: "regex"})
	assert.Error(t, err)
}

func TestSpec_RoundTrip(t *testing.T) {
	for _, src := range Defaults() {
		back, err := ParseSchema(src.Format, Spec(src.Schema))
		require.NoError(t, err, src.Name)
		assert.Equal(t, src.Schema, back, src.Name)
	}
}

func TestSelect(t *testing.T) {
	srcs := Defaults()

	all, err := Select(srcs, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(srcs))

	picked, err := Select(srcs, []string{"uk", "OFAC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"OFAC", "UK"}, Names(picked))

	_, err = Select(srcs, []string{"OFAC", "Interpol"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interpol")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "column(1)", Describe(Column{Index: 1}))
	assert.Equal(t, "xml_path(Names/Name/Name6)", Describe(XMLPath{Path: []string{"Names", "Name", "Name6"}}))
	assert.Equal(t, "xml_records(INDIVIDUAL,ENTITY)", Describe(Defaults()[3].Schema))
	assert.Equal(t, "html_lines", Describe(HTMLLines{}))
	assert.Equal(t, "<none>", Describe(nil))
}

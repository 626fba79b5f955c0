package sources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Source is one sanctions list.
type Source struct {
	Name   string
	URL    string
	Format Format
	Schema Schema
	// NormalizeCandidates applies name normalization to extracted
	// candidates, so both sides of a comparison are canonicalized.
	NormalizeCandidates bool
	// RenderJS fetches the page through a headless browser because the list
	// is rendered client-side.
	RenderJS bool
}

// Validate checks that s can be fetched and extracted.
func Validate(s Source) error {
	if strings.TrimSpace(s.Name) == "" {
		return &ConfigError{Message: "source name is empty"}
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ConfigError{Source: s.Name, Message: fmt.Sprintf("invalid URL %q", s.URL), Cause: err}
	}
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return &ConfigError{Source: s.Name, Message: "unsupported format", Cause: err}
	}
	if s.Schema == nil {
		return &ConfigError{Source: s.Name, Message: "no extraction schema"}
	}
	if s.Schema.Format() != s.Format {
		return &ConfigError{
			Source:  s.Name,
			Message: fmt.Sprintf("schema %s reads %s content, source format is %s", s.Schema.Kind(), s.Schema.Format(), s.Format),
		}
	}
	if s.RenderJS && s.Format != FormatHTML {
		return &ConfigError{Source: s.Name, Message: "render_js is only supported for html sources"}
	}
	if err := validateSchema(s.Schema); err != nil {
		return &ConfigError{Source: s.Name, Message: "invalid schema", Cause: err}
	}
	return nil
}

func validateSchema(s Schema) error {
	switch v := s.(type) {
	case Column:
		if v.Index < 0 {
			return fmt.Errorf("column index %d is negative", v.Index)
		}
	case XMLPath:
		if len(v.Path) == 0 {
			return fmt.Errorf("xml path is empty")
		}
		for _, seg := range v.Path {
			if strings.TrimSpace(seg) == "" {
				return fmt.Errorf("xml path %q has an empty segment", strings.Join(v.Path, "/"))
			}
		}
	case XMLRecords:
		if len(v.Records) == 0 {
			return fmt.Errorf("no record specs")
		}
		for _, r := range v.Records {
			if r.Element == "" {
				return fmt.Errorf("record spec without element")
			}
			if len(r.Fields) == 0 && r.Alias == "" {
				return fmt.Errorf("record %s has neither fields nor alias", r.Element)
			}
			if (r.Alias == "") != (r.AliasField == "") {
				return fmt.Errorf("record %s: alias and alias_field must be set together", r.Element)
			}
		}
	case HTMLSelector:
		if v.Attr == "" {
			return fmt.Errorf("html selector needs an attribute")
		}
		if _, err := cascadia.Compile(v.Selector); err != nil {
			return fmt.Errorf("bad css selector %q: %w", v.Selector, err)
		}
	}
	return nil
}

// ValidateAll validates every source and rejects duplicate names.
func ValidateAll(srcs []Source) error {
	if len(srcs) == 0 {
		return &ConfigError{Message: "no sources configured"}
	}
	seen := make(map[string]bool, len(srcs))
	for _, s := range srcs {
		if err := Validate(s); err != nil {
			return err
		}
		if seen[s.Name] {
			return &ConfigError{Source: s.Name, Message: "duplicate source name"}
		}
		seen[s.Name] = true
	}
	return nil
}

// Names returns source names in order.
func Names(srcs []Source) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.Name
	}
	return out
}

// Select returns the sources named in names, keeping the order of srcs.
// An empty names list selects everything.
func Select(srcs []Source, names []string) ([]Source, error) {
	if len(names) == 0 {
		return srcs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []Source
	for _, s := range srcs {
		key := strings.ToLower(s.Name)
		if want[key] {
			out = append(out, s)
			delete(want, key)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		return nil, &ConfigError{Message: fmt.Sprintf("unknown sources: %s", strings.Join(missing, ", "))}
	}
	return out, nil
}

// Defaults is the built-in sanctions source table.
func Defaults() []Source {
	return []Source{
		{
			Name:                "OFAC",
			URL:                 "https://www.treasury.gov/ofac/downloads/sdn.csv",
			Format:              FormatCSV,
			Schema:              Column{Index: 1},
			NormalizeCandidates: true,
		},
		{
			Name:                "EU",
			URL:                 "https://ec.europa.eu/external_relations/cfsp/sanctions/list/version4/global/global.xml",
			Format:              FormatXML,
			Schema:              XMLText{},
			NormalizeCandidates: true,
		},
		{
			Name:                "UK",
			URL:                 "https://assets.publishing.service.gov.uk/media/6852dd9adf3015b374b73638/UK_Sanctions_List.xml",
			Format:              FormatXML,
			Schema:              XMLPath{Path: []string{"Names", "Name", "Name6"}},
			NormalizeCandidates: true,
		},
		{
			Name:   "UN",
			URL:    "https://scsanctions.un.org/resources/xml/en/consolidated.xml",
			Format: FormatXML,
			Schema: XMLRecords{Records: []RecordSpec{
				{Element: "INDIVIDUAL", Fields: []string{"FIRST_NAME", "SECOND_NAME"}, Alias: "INDIVIDUAL_ALIAS", AliasField: "ALIAS_NAME"},
				{Element: "ENTITY", Fields: []string{"FIRST_NAME"}, Alias: "ENTITY_ALIAS", AliasField: "ALIAS_NAME"},
			}},
			NormalizeCandidates: true,
		},
		{
			Name:                "EU-Tracker",
			URL:                 "https://data.europa.eu/apps/eusanctionstracker/entities/",
			Format:              FormatHTML,
			Schema:              HTMLSelector{Selector: "ul li a[title]", Attr: "title"},
			NormalizeCandidates: true,
		},
		{
			Name:                "EU-SanctionsMap",
			URL:                 "https://sanctionsmap.eu/#/main",
			Format:              FormatHTML,
			Schema:              HTMLLines{},
			NormalizeCandidates: true,
			RenderJS:            true,
		},
		{
			Name:                "UN-SC",
			URL:                 "https://main.un.org/securitycouncil/en/sanctions/information",
			Format:              FormatHTML,
			Schema:              HTMLText{},
			NormalizeCandidates: true,
		},
	}
}

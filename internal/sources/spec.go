package sources

import (
	"fmt"
	"strings"
)

// SchemaSpec is the file representation of a Schema.
type SchemaSpec struct {
	Kind     string       `json:"kind" yaml:"kind"`
	Column   *int         `json:"column,omitempty" yaml:"column,omitempty"`
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Records  []RecordSpec `json:"records,omitempty" yaml:"records,omitempty"`
	Selector string       `json:"selector,omitempty" yaml:"selector,omitempty"`
	Attr     string       `json:"attr,omitempty" yaml:"attr,omitempty"`
}

// ParseSchema builds the schema described by spec. A nil spec or an empty
// kind selects the generic schema of the format.
func ParseSchema(f Format, spec *SchemaSpec) (Schema, error) {
	if spec == nil || spec.Kind == "" {
		if s := DefaultSchema(f); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("no default schema for format %q", f)
	}

	var s Schema
	switch strings.ToLower(spec.Kind) {
	case KindAllColumns:
		s = AllColumns{}
	case KindColumn:
		if spec.Column == nil {
			return nil, fmt.Errorf("schema %s requires a column index", KindColumn)
		}
		s = Column{Index: *spec.Column}
	case KindXMLText:
		s = XMLText{}
	case KindXMLPath:
		path := strings.Trim(strings.TrimPrefix(spec.Path, ".//"), "/")
		if path == "" {
			return nil, fmt.Errorf("schema %s requires a path", KindXMLPath)
		}
		s = XMLPath{Path: strings.Split(path, "/")}
	case KindXMLRecords:
		s = XMLRecords{Records: spec.Records}
	case KindHTMLSelector:
		attr := spec.Attr
		if attr == "" {
			attr = "title"
		}
		s = HTMLSelector{Selector: spec.Selector, Attr: attr}
	case KindHTMLLines:
		s = HTMLLines{}
	case KindHTMLText:
		s = HTMLText{}
	default:
		return nil, fmt.Errorf("unknown schema kind %q", spec.Kind)
	}

	if s.Format() != f {
		return nil, fmt.Errorf("schema %s cannot read %s content", s.Kind(), f)
	}
	if err := validateSchema(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Spec is the inverse of ParseSchema.
func Spec(s Schema) *SchemaSpec {
	spec := &SchemaSpec{Kind: s.Kind()}
	switch v := s.(type) {
	case Column:
		idx := v.Index
		spec.Column = &idx
	case XMLPath:
		spec.Path = strings.Join(v.Path, "/")
	case XMLRecords:
		spec.Records = v.Records
	case HTMLSelector:
		spec.Selector = v.Selector
		spec.Attr = v.Attr
	}
	return spec
}

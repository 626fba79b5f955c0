package extraction

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// xmlNode is an element of a parsed document. text holds the character data
// before the first child element; names are local names without namespace.
type xmlNode struct {
	name     string
	text     string
	children []*xmlNode
}

func newXMLDecoder(raw []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(raw))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, fmt.Errorf("unsupported xml encoding %q: %w", label, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return d
}

func xmlParseError(msg string, err error) error {
	return &ParseError{Format: sources.FormatXML, Message: msg, Cause: err}
}

// parseXMLTree builds the element tree of raw.
func parseXMLTree(raw []byte) (*xmlNode, error) {
	d := newXMLDecoder(raw)

	var root *xmlNode
	var stack []*xmlNode
	var text strings.Builder

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xmlParseError("malformed xml", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				if len(parent.children) == 0 {
					parent.text = text.String()
				}
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			text.Reset()
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, xmlParseError("unbalanced end element "+t.Name.Local, nil)
			}
			n := stack[len(stack)-1]
			if len(n.children) == 0 {
				n.text = text.String()
			}
			text.Reset()
			stack = stack[:len(stack)-1]
		case xml.CharData:
			text.Write(t)
		}
	}

	if root == nil {
		return nil, xmlParseError("document has no root element", nil)
	}
	if len(stack) > 0 {
		return nil, xmlParseError("unexpected end of document inside "+stack[len(stack)-1].name, nil)
	}
	return root, nil
}

// descendants calls fn for every element below n named name, in document
// order. n itself is not visited.
func (n *xmlNode) descendants(name string, fn func(*xmlNode)) {
	for _, c := range n.children {
		if c.name == name {
			fn(c)
		}
		c.descendants(name, fn)
	}
}

// child returns direct children named name.
func (n *xmlNode) child(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// childText returns the trimmed text of the first direct child named name.
func (n *xmlNode) childText(name string) string {
	for _, c := range n.children {
		if c.name == name {
			return strings.TrimSpace(c.text)
		}
	}
	return ""
}

// extractXMLText flattens all character data of the document in order and
// returns its non-empty lines.
func extractXMLText(raw []byte) ([]string, error) {
	d := newXMLDecoder(raw)

	var text strings.Builder
	depth := 0
	sawRoot := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xmlParseError("malformed xml", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth > 0 {
				text.Write(t)
			}
		}
	}
	if !sawRoot {
		return nil, xmlParseError("document has no root element", nil)
	}
	return nonEmptyLines(text.String()), nil
}

// extractXMLPath follows path from every descendant named path[0].
func extractXMLPath(raw []byte, path []string) ([]string, error) {
	root, err := parseXMLTree(raw)
	if err != nil {
		return nil, err
	}

	out := []string{}
	root.descendants(path[0], func(start *xmlNode) {
		level := []*xmlNode{start}
		for _, seg := range path[1:] {
			var next []*xmlNode
			for _, n := range level {
				next = append(next, n.child(seg)...)
			}
			level = next
		}
		for _, n := range level {
			if t := strings.TrimSpace(n.text); t != "" {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

// extractXMLRecords collects the named fields and alias names of every record.
func extractXMLRecords(raw []byte, specs []sources.RecordSpec) ([]string, error) {
	root, err := parseXMLTree(raw)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, spec := range specs {
		root.descendants(spec.Element, func(rec *xmlNode) {
			for _, field := range spec.Fields {
				if t := rec.childText(field); t != "" {
					out = append(out, t)
				}
			}
			if spec.Alias == "" {
				return
			}
			for _, alias := range rec.child(spec.Alias) {
				if t := alias.childText(spec.AliasField); t != "" {
					out = append(out, t)
				}
			}
		})
	}
	return out, nil
}

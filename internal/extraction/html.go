package extraction

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// htmlString decodes raw as UTF-8, dropping invalid bytes.
func htmlString(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}

// extractHTMLSelector returns attr of every element matching selector.
// Elements without the attribute are skipped.
func extractHTMLSelector(raw []byte, selector, attr string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlString(raw)))
	if err != nil {
		return nil, &ParseError{Format: sources.FormatHTML, Message: "failed to parse HTML", Cause: err}
	}

	out := []string{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr(attr)
		if !ok {
			return
		}
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	})
	return out, nil
}

var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// extractHTMLText renders the page as Markdown and returns its lines, with
// list and table decoration removed.
func extractHTMLText(raw []byte) ([]string, error) {
	md, err := markdownConverter.ConvertString(htmlString(raw))
	if err != nil {
		return nil, &ParseError{Format: sources.FormatHTML, Message: "failed to convert HTML to text", Cause: err}
	}

	lines := nonEmptyLines(md)
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(strings.Trim(line, "|-*#>_ "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, section, article"

// TextFromMarkup renders an HTML fragment as plain text, keeping line
// breaks for <br> and block elements. Entities are decoded by the parser.
func TextFromMarkup(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return CleanBlock(markup)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})
	return CleanBlock(doc.Text())
}

// CleanBlock normalises line endings and whitespace, keeping at most one
// blank line between paragraphs.
func CleanBlock(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	value = strings.ReplaceAll(value, "\u00a0", " ")

	var out []string
	blank := false
	for _, line := range strings.Split(value, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// CleanLine collapses all whitespace, line breaks included, to single spaces.
func CleanLine(value string) string {
	value = strings.ReplaceAll(value, "\u00a0", " ")
	return strings.Join(strings.Fields(value), " ")
}

// JoinSegments joins the non-empty segments with a blank line, in order.
func JoinSegments(segments ...string) (string, bool) {
	var parts []string
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

package matching

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeSkill lowercases and collapses inner whitespace.
func NormalizeSkill(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// PlainText strips markup from scraped or pasted descriptions. Text without tags is
// returned with whitespace collapsed. Block boundaries become spaces so adjacent list
// items do not glue together.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				b.WriteString(c.Text())
				b.WriteByte(' ')
			case "script", "style", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(doc.Selection)

	return strings.Join(strings.Fields(b.String()), " ")
}

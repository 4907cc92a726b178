package rss

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup returns the visible text of an HTML fragment with entities decoded and
// whitespace collapsed.
func StripMarkup(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("script, style, noscript").Remove()
	// Block boundaries would otherwise glue words together.
	doc.Find("br, p, div, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AfterHtml(" ")
	})
	return collapse(doc.Text())
}

// Truncate cuts s to n runes, appending "..." only when something was cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

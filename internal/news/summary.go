package news

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minSentenceRunes = 15
	maxFallbackRunes = 160
)

// Summarize picks up to maxSentences sentences of reasonable length from text, splitting
// naively on sentence punctuation. Text without usable sentences is cut at 160 runes.
func Summarize(text string, maxSentences int) string {
	c := strings.Join(strings.Fields(text), " ")
	c = strings.TrimSuffix(c, "...")
	if c == "" {
		return ""
	}
	if maxSentences <= 0 {
		maxSentences = 1
	}

	sentences := strings.FieldsFunc(c, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var picked []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) < minSentenceRunes {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= maxSentences {
			break
		}
	}

	if len(picked) == 0 {
		if utf8.RuneCountInString(c) > maxFallbackRunes {
			return string([]rune(c)[:maxFallbackRunes]) + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}

// BriefEntry is one line of a brief.
type BriefEntry struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SourceKey   string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary"`
}

// Brief summarizes the first n items with up to sentences sentences each.
func Brief(items []Item, n, sentences int) []BriefEntry {
	n = min(max(n, 0), len(items))
	out := make([]BriefEntry, 0, n)
	for _, it := range items[:n] {
		summary := Summarize(it.Excerpt, sentences)
		if summary == "" {
			summary = it.Title
		}
		out = append(out, BriefEntry{
			Title:       it.Title,
			Link:        it.Link,
			SourceKey:   it.SourceKey,
			PublishedAt: it.PublishedAt,
			Summary:     summary,
		})
	}
	return out
}

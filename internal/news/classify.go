// Package news holds the news item model and the advertisement/relevance rules.
package news

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/sitrep/internal/keyword"
)

// Acceptance thresholds.
const (
	MinTitleRunes          = 5
	DefaultMinExcerptRunes = 20
	DefaultBreakingMarker  = "breaking"
)

// Rules is the keyword configuration of a Classifier.
type Rules struct {
	AdPhrases       []string
	AdLinkSegments  []string
	BreakingMarker  string
	MinExcerptRunes int

	Locations []string
	Conflicts []string
	// Strong keywords make an item relevant on their own.
	Strong []string
	// RelaxedTerms make items from relaxed sources relevant on their own.
	RelaxedTerms []string
}

// Verdict is the outcome of both predicates for one item.
type Verdict struct {
	IsAdvertisement bool `json:"is_advertisement"`
	IsRelevant      bool `json:"is_relevant"`
}

// Classifier decides advertisement exclusion and topical relevance.
type Classifier struct {
	ads          *keyword.Set
	linkSegments []string
	breaking     string
	minExcerpt   int

	locations *keyword.Set
	conflicts *keyword.Set
	strong    *keyword.Set
	relaxed   *keyword.Set
}

// NewClassifier compiles the rule keyword sets.
func NewClassifier(r Rules) *Classifier {
	breaking := keyword.Fold(strings.TrimSpace(r.BreakingMarker))
	if breaking == "" {
		breaking = DefaultBreakingMarker
	}
	minExcerpt := r.MinExcerptRunes
	if minExcerpt <= 0 {
		minExcerpt = DefaultMinExcerptRunes
	}

	segments := make([]string, 0, len(r.AdLinkSegments))
	for _, seg := range r.AdLinkSegments {
		if seg = strings.ToLower(strings.TrimSpace(seg)); seg != "" {
			segments = append(segments, seg)
		}
	}

	return &Classifier{
		ads:          keyword.NewSet(r.AdPhrases),
		linkSegments: segments,
		breaking:     breaking,
		minExcerpt:   minExcerpt,
		locations:    keyword.NewSet(r.Locations),
		conflicts:    keyword.NewSet(r.Conflicts),
		strong:       keyword.NewSet(r.Strong),
		relaxed:      keyword.NewSet(r.RelaxedTerms),
	}
}

// IsAdvertisement reports promotional content: a blocklisted phrase, a too-short excerpt
// without a "breaking" title, or a shop/subscribe link.
func (c *Classifier) IsAdvertisement(it Item) bool {
	if c.ads.Any(it.Text()) {
		return true
	}
	if utf8.RuneCountInString(it.Excerpt) < c.minExcerpt &&
		!strings.Contains(keyword.Fold(it.Title), c.breaking) {
		return true
	}
	return c.hasPromoLink(it.Link)
}

func (c *Classifier) hasPromoLink(link string) bool {
	path := strings.ToLower(link)
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		path = strings.ToLower(u.Path)
	}
	for _, seg := range c.linkSegments {
		if strings.Contains(path, seg) {
			return true
		}
	}
	return false
}

// IsRelevant reports whether the item is about the conflict: a location and a conflict
// keyword together, or any strong keyword. Relaxed sources also accept a strike term alone.
func (c *Classifier) IsRelevant(it Item, src Source) bool {
	text := it.Text()
	if c.strong.Any(text) {
		return true
	}
	if c.locations.Any(text) && c.conflicts.Any(text) {
		return true
	}
	return src.Relaxed && c.relaxed.Any(text)
}

// Classify evaluates both predicates.
func (c *Classifier) Classify(it Item, src Source) Verdict {
	return Verdict{
		IsAdvertisement: c.IsAdvertisement(it),
		IsRelevant:      c.IsRelevant(it, src),
	}
}

// Accept reports whether the item may enter the corpus.
func (c *Classifier) Accept(it Item, src Source) bool {
	if !it.HasTimestamp() || utf8.RuneCountInString(it.Title) < MinTitleRunes {
		return false
	}
	return !c.IsAdvertisement(it) && c.IsRelevant(it, src)
}

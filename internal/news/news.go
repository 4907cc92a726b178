package news

import (
	"strings"
	"time"
)

// Defaults substituted for missing feed fields.
const (
	DefaultTitle = "No Title"
	DefaultLink  = "#"
)

// Item is a single normalized news entry from one source.
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SourceKey   string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Excerpt     string    `json:"excerpt"`
}

// Text is the title and excerpt joined, the text every keyword rule runs against.
func (i Item) Text() string {
	return i.Title + " " + i.Excerpt
}

// HasTimestamp reports whether the published time was parsed.
func (i Item) HasTimestamp() bool {
	return !i.PublishedAt.IsZero()
}

// Source is a configured feed.
type Source struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
	// Relaxed sources are regional or topical outlets; a strike/missile term alone makes
	// their items relevant.
	Relaxed bool `json:"relaxed"`
}

// DisplayName returns Name, or the upper-cased key when no name is configured.
func (s Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return strings.ToUpper(s.Key)
}

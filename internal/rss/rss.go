// Package rss turns raw feed payloads into news items and collects accepted items per source.
package rss

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/sitrep/internal/news"
)

// MaxExcerptRunes caps the plain-text excerpt.
const MaxExcerptRunes = 150

// ErrMalformedFeed is wrapped by Parse when the payload is not a readable feed.
var ErrMalformedFeed = errors.New("malformed feed")

// Parse decodes an RSS, Atom or JSON feed payload into candidate items of src. Missing fields
// get defaults; an entry whose date is present but unreadable keeps a zero PublishedAt so the
// classifier drops it. Entries without any date are stamped with now.
func Parse(payload []byte, src news.Source, now time.Time) ([]news.Item, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("%s: %w: empty document", src.Key, ErrMalformedFeed)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", src.Key, ErrMalformedFeed, err)
	}

	items := make([]news.Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		if fi == nil {
			continue
		}
		items = append(items, toItem(fi, src, now))
	}
	return items, nil
}

func toItem(fi *gofeed.Item, src news.Source, now time.Time) news.Item {
	title := strings.TrimSpace(fi.Title)
	if title == "" {
		title = news.DefaultTitle
	}
	link := strings.TrimSpace(fi.Link)
	if link == "" {
		link = news.DefaultLink
	}

	description := fi.Description
	if strings.TrimSpace(description) == "" {
		description = fi.Content
	}

	return news.Item{
		Title:       title,
		Link:        link,
		SourceKey:   src.Key,
		PublishedAt: publishedAt(fi, now),
		Excerpt:     Truncate(StripMarkup(description), MaxExcerptRunes),
	}
}

func publishedAt(fi *gofeed.Item, now time.Time) time.Time {
	switch {
	case fi.PublishedParsed != nil:
		return fi.PublishedParsed.UTC()
	case fi.UpdatedParsed != nil:
		return fi.UpdatedParsed.UTC()
	case strings.TrimSpace(fi.Published) != "" || strings.TrimSpace(fi.Updated) != "":
		return time.Time{}
	default:
		return now
	}
}

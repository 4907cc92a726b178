package news_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/sitrep/internal/news"
)

func testRules() news.Rules {
	return news.Rules{
		AdPhrases:      []string{"sponsored", "advertisement", "subscribe", "shop", "buy now", "gift card"},
		AdLinkSegments: []string{"/shop/", "/subscribe"},
		BreakingMarker: "breaking",
		Locations:      []string{"iran", "israel", "tehran", "gaza", "lebanon"},
		Conflicts:      []string{"strike", "missile", "attack", "war", "explosion"},
		Strong:         []string{"irgc", "hezbollah", "iron dome"},
		RelaxedTerms:   []string{"strike", "missile"},
	}
}

var (
	cnn   = news.Source{Key: "cnn", URL: "http://rss.cnn.com/rss/edition_world.rss"}
	jpost = news.Source{Key: "jpost", URL: "https://rss.jpost.com/rss/rssfeedsiran.aspx", Relaxed: true}
)

func item(title, excerpt string) news.Item {
	return news.Item{
		Title:       title,
		Link:        "https://example.com/world/article-1",
		SourceKey:   "cnn",
		PublishedAt: time.Date(2026, 6, 13, 4, 0, 0, 0, time.UTC),
		Excerpt:     excerpt,
	}
}

func TestClassifier_ShortExcerptBoundary(t *testing.T) {
	c := news.NewClassifier(testRules())
	excerpt := strings.Repeat("x", 19)

	assert.True(t, c.IsAdvertisement(item("Update on talks", excerpt)))
	assert.False(t, c.IsAdvertisement(item("BREAKING: Update on talks", excerpt)))
	assert.False(t, c.IsAdvertisement(item("Update on talks", strings.Repeat("x", 20))))
}

func TestClassifier_ShortExcerptCountsRunes(t *testing.T) {
	c := news.NewClassifier(testRules())

	// 20 runes, more than 20 bytes.
	assert.False(t, c.IsAdvertisement(item("Update on talks", "ירי טילים על תל אביב")))
}

func TestClassifier_BreakingDoesNotOverrideOtherRules(t *testing.T) {
	c := news.NewClassifier(testRules())

	it := item("BREAKING: Sponsored briefing", "short")
	assert.True(t, c.IsAdvertisement(it))
}

func TestClassifier_AdvertisementRules(t *testing.T) {
	c := news.NewClassifier(testRules())
	longExcerpt := "Officials in Tehran confirmed the missile strike hit a depot overnight"

	testCases := []struct {
		name string
		item news.Item
		want bool
	}{
		{
			name: "blocklisted phrase in title",
			item: item("Buy now: the best war documentaries", longExcerpt),
			want: true,
		},
		{
			name: "blocklisted phrase in excerpt",
			item: item("Iran strike analysis", "This content is sponsored by our partner network"),
			want: true,
		},
		{
			name: "shop link path",
			item: news.Item{Title: "Iran strike analysis", Excerpt: longExcerpt, Link: "https://example.com/shop/maps", PublishedAt: time.Now()},
			want: true,
		},
		{
			name: "subscribe link path",
			item: news.Item{Title: "Iran strike analysis", Excerpt: longExcerpt, Link: "https://example.com/subscribe?ref=rss", PublishedAt: time.Now()},
			want: true,
		},
		{
			name: "shop only in host is not a path segment",
			item: news.Item{Title: "Iran strike analysis", Excerpt: longExcerpt, Link: "https://shopnews.example.com/world/1", PublishedAt: time.Now()},
			want: false,
		},
		{
			name: "clean news item",
			item: item("Iran strike analysis", longExcerpt),
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsAdvertisement(tc.item))
		})
	}
}

func TestClassifier_Relevance(t *testing.T) {
	c := news.NewClassifier(testRules())

	testCases := []struct {
		name   string
		item   news.Item
		source news.Source
		want   bool
	}{
		{
			name:   "location and conflict keyword",
			item:   item("Missile launched toward Israel", "Air defenses engaged several targets overnight"),
			source: cnn,
			want:   true,
		},
		{
			name:   "location only",
			item:   item("Iran hosts trade fair", "Exporters gathered for the annual exhibition"),
			source: cnn,
			want:   false,
		},
		{
			name:   "conflict only",
			item:   item("Missile test in the Pacific", "The launch was announced in advance"),
			source: cnn,
			want:   false,
		},
		{
			name:   "strong keyword alone",
			item:   item("Hezbollah statement released", "The group issued a statement on Tuesday"),
			source: cnn,
			want:   true,
		},
		{
			name:   "relaxed source with strike term alone",
			item:   item("Missile test in the Pacific", "The launch was announced in advance"),
			source: jpost,
			want:   true,
		},
		{
			name:   "relaxed source without any term",
			item:   item("Cabinet meets on budget", "Ministers debated the spending plan"),
			source: jpost,
			want:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsRelevant(tc.item, tc.source))
		})
	}
}

func TestClassifier_AcceptRequiresAllConditions(t *testing.T) {
	c := news.NewClassifier(testRules())
	good := item("Missile strike hits Tehran, explosion reported", "officials confirm damage")

	require.True(t, c.Accept(good, cnn))

	noTime := good
	noTime.PublishedAt = time.Time{}
	assert.False(t, c.Accept(noTime, cnn), "unparsed timestamp")

	shortTitle := good
	shortTitle.Title = "Iran"
	shortTitle.Excerpt = "Missile strike reported near the capital"
	assert.False(t, c.Accept(shortTitle, cnn), "title under five runes")

	ad := good
	ad.Link = "https://example.com/subscribe"
	assert.False(t, c.Accept(ad, cnn), "advertisement")

	offTopic := item("Markets close higher on Friday", "Stocks rallied on strong earnings")
	assert.False(t, c.Accept(offTopic, cnn), "irrelevant")
}

func TestClassifier_Classify(t *testing.T) {
	c := news.NewClassifier(testRules())

	v := c.Classify(item("Missile strike hits Tehran, explosion reported", "officials confirm damage"), cnn)
	assert.Equal(t, news.Verdict{IsAdvertisement: false, IsRelevant: true}, v)
}

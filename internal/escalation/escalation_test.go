package escalation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/sitrep/internal/news"
)

var testWeights = []Weight{
	{Keyword: "nuclear", Weight: 10},
	{Keyword: "war", Weight: 6},
	{Keyword: "missile", Weight: 5},
	{Keyword: "strike", Weight: 4},
	{Keyword: "explosion", Weight: 4},
	{Keyword: "drone", Weight: 3},
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(testWeights, DefaultCeiling, DefaultWindow)
	require.NoError(t, err)
	return s
}

func newsItem(title, excerpt string) news.Item {
	return news.Item{Title: title, Excerpt: excerpt, PublishedAt: time.Now()}
}

func TestScore_DistinctKeywordsPerItem(t *testing.T) {
	s := newTestScorer(t)

	score := s.Score([]news.Item{
		newsItem("Missile strike hits Tehran, explosion reported", "officials confirm damage"),
	})

	assert.Equal(t, 13, score.Total)
	assert.Equal(t, 7, score.Value) // round(13/200*100) = round(6.5)
	assert.Equal(t, Nominal, score.Tier)
	assert.Equal(t, map[string]int{"missile": 1, "strike": 1, "explosion": 1}, score.Hits)
}

func TestScore_KeywordsMatchInsideWords(t *testing.T) {
	s := newTestScorer(t)

	testCases := []struct {
		title string
		want  int
	}{
		{"Israeli warplanes pound targets", 6},
		{"Warships enter Red Sea", 6},
		{"Post-war talks stall", 6},
		{"War declared", 6},
		{"Drones and missiles launched", 8},
	}
	for _, tc := range testCases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Score([]news.Item{newsItem(tc.title, "")}).Total)
		})
	}
}

func TestScore_RepeatedKeywordCountsOnce(t *testing.T) {
	s := newTestScorer(t)

	score := s.Score([]news.Item{newsItem("Missile after missile", "another missile launched overnight")})
	assert.Equal(t, 5, score.Total)
}

func TestScore_OnlyWindowIsScanned(t *testing.T) {
	s, err := NewScorer(testWeights, DefaultCeiling, 2)
	require.NoError(t, err)

	items := []news.Item{
		newsItem("Drone sighted", "quiet night otherwise"),
		newsItem("Drone sighted again", "quiet night otherwise"),
		newsItem("Nuclear talks collapse", "nuclear facility on alert"),
	}
	score := s.Score(items)

	assert.Equal(t, 6, score.Total)
	assert.Equal(t, 2, score.Items)
}

func TestScore_ClampedAt100(t *testing.T) {
	s := newTestScorer(t)

	items := make([]news.Item, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, newsItem("Nuclear war missile strike", "explosion and drone swarm"))
	}
	score := s.Score(items)

	assert.Equal(t, 100, score.Value)
	assert.Equal(t, Critical, score.Tier)
}

func TestScore_Empty(t *testing.T) {
	s := newTestScorer(t)
	score := s.Score(nil)

	assert.Equal(t, 0, score.Value)
	assert.Equal(t, Nominal, score.Tier)
}

func TestTierFor_Boundaries(t *testing.T) {
	testCases := []struct {
		value int
		want  Tier
	}{
		{0, Nominal}, {40, Nominal}, {41, Elevated}, {75, Elevated}, {76, Critical}, {100, Critical},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, TierFor(tc.value), "value %d", tc.value)
	}
}

func TestTier_JSON(t *testing.T) {
	b, err := json.Marshal(Score{Value: 80, Tier: Critical})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tier":"critical"`)
}

func TestNewScorer_Validation(t *testing.T) {
	_, err := NewScorer(nil, DefaultCeiling, DefaultWindow)
	assert.Error(t, err)

	_, err = NewScorer(testWeights, 0, DefaultWindow)
	assert.Error(t, err)

	_, err = NewScorer([]Weight{{Keyword: "war", Weight: -1}}, DefaultCeiling, DefaultWindow)
	assert.Error(t, err)

	_, err = NewScorer([]Weight{{Keyword: "  ", Weight: 1}}, DefaultCeiling, DefaultWindow)
	assert.Error(t, err)

	s, err := NewScorer(testWeights, DefaultCeiling, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, s.Window())
}

func TestNormalize_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score stays within [0,100]", prop.ForAll(
		func(total float64) bool {
			v := Normalize(total, DefaultCeiling)
			return v >= 0 && v <= 100
		},
		gen.Float64Range(-1000, 100000),
	))

	properties.Property("score is monotonic in the total", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return Normalize(a, DefaultCeiling) <= Normalize(b, DefaultCeiling)
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
	))

	properties.TestingRun(t)
}

var vocabulary = []string{"nuclear", "war", "missile", "strike", "explosion", "drone", "calm", "talks", "market", "weather"}

func genItems() gopter.Gen {
	return gen.SliceOf(gen.SliceOfN(4, gen.IntRange(0, len(vocabulary)-1))).Map(func(rows [][]int) []news.Item {
		items := make([]news.Item, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row))
			for _, i := range row {
				words = append(words, vocabulary[i])
			}
			items = append(items, newsItem(strings.Join(words, " "), ""))
		}
		return items
	})
}

func TestScore_Properties(t *testing.T) {
	s := newTestScorer(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("adding an item within the window never lowers the score", prop.ForAll(
		func(items []news.Item, extra []news.Item) bool {
			if len(items) >= s.Window() || len(extra) == 0 {
				return true
			}
			before := s.Score(items)
			after := s.Score(append(append([]news.Item(nil), items...), extra[0]))
			return after.Value >= before.Value && after.Total >= before.Total
		},
		genItems(),
		genItems(),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(items []news.Item) bool {
			a, b := s.Score(items), s.Score(items)
			return a.Value == b.Value && a.Total == b.Total && a.Tier == b.Tier
		},
		genItems(),
	))

	properties.TestingRun(t)
}

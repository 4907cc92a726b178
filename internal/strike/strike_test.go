package strike

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/news"
)

var t0 = time.Date(2026, 6, 13, 4, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Actions: []string{"explosion", "airstrike", "intercepted", "blast"},
		Places: []Place{
			{Name: "Tehran", Lat: 35.6892, Lon: 51.389},
			{Name: "Isfahan", Lat: 32.6546, Lon: 51.668},
			{Name: "Tel Aviv", Lat: 32.0853, Lon: 34.7818},
			{Name: "Haifa", Lat: 32.794, Lon: 34.9896},
		},
	}
}

func newTestDetector(t *testing.T, now time.Time) (*Detector, *time.Time) {
	t.Helper()
	d, err := NewDetector(testConfig())
	require.NoError(t, err)
	clock := now
	d.SetClock(func() time.Time { return clock })
	return d, &clock
}

func item(title string, at time.Time) news.Item {
	return news.Item{Title: title, SourceKey: "cnn", Link: "https://example.com/a", PublishedAt: at}
}

func TestDetect_RoundTripItem(t *testing.T) {
	d, _ := newTestDetector(t, t0.Add(5*time.Minute))

	fresh := d.Detect([]news.Item{
		{Title: "Missile strike hits Tehran, explosion reported", Excerpt: "officials confirm damage", SourceKey: "cnn", Link: "#", PublishedAt: t0},
	})

	require.Len(t, fresh, 1)
	rec := fresh[0]
	assert.Equal(t, "Tehran", rec.City)
	assert.Equal(t, 35.6892, rec.Lat)
	assert.Equal(t, "Tehran|"+"1781323200", rec.ID)
	assert.Equal(t, t0, rec.DetectedAt)
	assert.Equal(t, t0.Add(5*time.Minute), rec.RecordedAt)

	ev := rec.Event()
	assert.Equal(t, alert.KindStrikeConfirmed, ev.Kind)
	assert.Equal(t, []string{"Tehran"}, ev.Places)
	assert.Equal(t, t0, ev.Timestamp)
}

func TestDetect_DedupWithinWindow(t *testing.T) {
	d, _ := newTestDetector(t, t0.Add(2*time.Hour))

	fresh := d.Detect([]news.Item{
		item("Explosion heard in Haifa", t0.Add(10*time.Minute)),
		item("Haifa blast confirmed", t0),
	})

	assert.Len(t, fresh, 1)
	assert.Len(t, d.Records(), 1)
}

func TestDetect_SeparateOutsideWindow(t *testing.T) {
	d, _ := newTestDetector(t, t0.Add(2*time.Hour))

	fresh := d.Detect([]news.Item{
		item("Explosion heard in Haifa", t0.Add(90*time.Minute)),
		item("Haifa blast confirmed", t0),
	})

	assert.Len(t, fresh, 2)
	records := d.Records()
	require.Len(t, records, 2)
	assert.Equal(t, t0.Add(90*time.Minute), records[0].DetectedAt)
}

func TestDetect_DedupAcrossCycles(t *testing.T) {
	d, clock := newTestDetector(t, t0.Add(time.Minute))
	items := []news.Item{item("Airstrike reported near Isfahan", t0)}

	assert.Len(t, d.Detect(items), 1)
	*clock = t0.Add(6 * time.Minute)
	assert.Empty(t, d.Detect(items), "re-fetched item must not alert again")
	assert.Len(t, d.Records(), 1)
}

func TestDetect_TTLEviction(t *testing.T) {
	testCases := []struct {
		name    string
		elapsed time.Duration
		kept    bool
	}{
		{name: "one second past ttl", elapsed: 6*time.Hour + time.Second, kept: false},
		{name: "exactly ttl", elapsed: 6 * time.Hour, kept: true},
		{name: "within ttl", elapsed: 5 * time.Hour, kept: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, clock := newTestDetector(t, t0)
			require.Len(t, d.Detect([]news.Item{item("Explosion in Tel Aviv", t0)}), 1)

			*clock = t0.Add(tc.elapsed)
			d.Detect(nil)

			if tc.kept {
				assert.Len(t, d.Records(), 1)
			} else {
				assert.Empty(t, d.Records())
			}
		})
	}
}

func TestDetect_SkipsCandidatesOlderThanTTL(t *testing.T) {
	d, _ := newTestDetector(t, t0.Add(7*time.Hour))

	fresh := d.Detect([]news.Item{item("Explosion in Tel Aviv", t0)})

	assert.Empty(t, fresh)
	assert.Empty(t, d.Records())
}

func TestDetect_FirstPlaceInTableOrder(t *testing.T) {
	d, _ := newTestDetector(t, t0)

	fresh := d.Detect([]news.Item{item("Haifa and Tel Aviv sirens after Tehran explosion", t0)})

	require.Len(t, fresh, 1)
	assert.Equal(t, "Tehran", fresh[0].City)
}

func TestDetect_RequiresActionAndPlace(t *testing.T) {
	d, _ := newTestDetector(t, t0)

	fresh := d.Detect([]news.Item{
		item("Tehran markets reopen", t0),
		item("Explosion at factory abroad", t0),
		{Title: "Explosion in Haifa", PublishedAt: time.Time{}},
	})

	assert.Empty(t, fresh)
}

func TestDetect_ScansOnlyNewestItems(t *testing.T) {
	cfg := testConfig()
	cfg.ScanSize = 1
	d, err := NewDetector(cfg)
	require.NoError(t, err)
	d.SetClock(func() time.Time { return t0 })

	fresh := d.Detect([]news.Item{
		item("Quiet night in Tehran", t0),
		item("Explosion in Haifa", t0),
	})

	assert.Empty(t, fresh)
}

func TestNewDetector_Validation(t *testing.T) {
	_, err := NewDetector(Config{Places: testConfig().Places})
	assert.Error(t, err)

	_, err = NewDetector(Config{Actions: []string{"explosion"}})
	assert.Error(t, err)

	_, err = NewDetector(Config{Actions: []string{"explosion"}, Places: []Place{{Name: "Haifa"}, {Name: "haifa"}}})
	assert.Error(t, err)

	d, err := NewDetector(testConfig())
	require.NoError(t, err)
	places := d.Places()
	require.Len(t, places, 4)
	assert.Equal(t, "Tehran", places[0].Name)
	assert.Equal(t, "Haifa", places[3].Name)
}

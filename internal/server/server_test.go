package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/corpus"
	"github.com/deusflow/sitrep/internal/escalation"
	"github.com/deusflow/sitrep/internal/metrics"
	"github.com/deusflow/sitrep/internal/narrative"
	"github.com/deusflow/sitrep/internal/news"
	"github.com/deusflow/sitrep/internal/strike"
)

type fakeProvider struct {
	snap     *corpus.Snapshot
	score    escalation.Score
	clusters []narrative.Cluster
	strikes  []strike.Record
	alerts   alert.State
	sources  []news.Source
}

func (f *fakeProvider) Snapshot() *corpus.Snapshot    { return f.snap }
func (f *fakeProvider) Escalation() escalation.Score  { return f.score }
func (f *fakeProvider) Clusters() []narrative.Cluster { return f.clusters }
func (f *fakeProvider) Strikes() []strike.Record      { return f.strikes }
func (f *fakeProvider) Alerts() alert.State           { return f.alerts }
func (f *fakeProvider) Sources() []news.Source        { return f.sources }

func newFixture() (*fakeProvider, *metrics.Metrics) {
	now := time.Date(2026, 6, 13, 4, 0, 0, 0, time.UTC)
	p := &fakeProvider{
		snap: &corpus.Snapshot{
			Cycle:       3,
			CompletedAt: now,
			Items: []news.Item{
				{Title: "Missile strike hits Tehran", SourceKey: "cnn", PublishedAt: now, Excerpt: "Officials confirm damage to the site. More soon."},
				{Title: "Sirens in Haifa", SourceKey: "jpost", PublishedAt: now.Add(-time.Minute)},
				{Title: "Drone intercepted", SourceKey: "cnn", PublishedAt: now.Add(-2 * time.Minute)},
			},
			Reports: []corpus.SourceReport{
				{Key: "cnn", Accepted: 2, Duration: 120 * time.Millisecond},
				{Key: "jpost", Accepted: 1},
				{Key: "fox", Err: errors.New("all strategies failed")},
			},
		},
		score:   escalation.Score{Value: 55, Tier: escalation.Elevated, Total: 110, Items: 3},
		strikes: []strike.Record{{ID: "Tehran|1781323200", City: "Tehran"}},
		alerts: alert.State{
			Status:       alert.StatusActive,
			ActivePlaces: []string{"Haifa"},
			Log:          []alert.Event{alert.NewEvent(alert.KindLive, "Rockets", []string{"Haifa"}, now)},
		},
		sources: []news.Source{{Key: "fox"}, {Key: "cnn"}, {Key: "jpost", Relaxed: true}},
	}
	return p, metrics.New()
}

func do(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNews(t *testing.T) {
	p, m := newFixture()
	s := New(p, m, nil, false)

	rec, body := do(t, s, "/api/v1/news")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, body["count"])
	assert.Equal(t, 3.0, body["cycle"])

	rec, body = do(t, s, "/api/v1/news?source=cnn&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["total"])
	assert.Equal(t, 1.0, body["count"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Missile strike hits Tehran", items[0].(map[string]interface{})["title"])

	rec, body = do(t, s, "/api/v1/news?source=fox")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["items"])

	rec, _ = do(t, s, "/api/v1/news?source=bbc")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, "/api/v1/news?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNews_LargeLimitReturnsWholeCorpus(t *testing.T) {
	p, m := newFixture()
	base := p.snap.Items[0]
	for i := 0; i < 700; i++ {
		p.snap.Items = append(p.snap.Items, base)
	}
	s := New(p, m, nil, false)

	_, body := do(t, s, "/api/v1/news?limit=1000")
	assert.Equal(t, 703.0, body["total"])
	assert.Equal(t, 703.0, body["count"])

	_, body = do(t, s, "/api/v1/news")
	assert.Equal(t, 703.0, body["total"])
	assert.Equal(t, 100.0, body["count"])
}

func TestEscalation(t *testing.T) {
	p, m := newFixture()
	_, body := do(t, New(p, m, nil, false), "/api/v1/escalation")

	score := body["score"].(map[string]interface{})
	assert.Equal(t, 55.0, score["value"])
	assert.Equal(t, "elevated", score["tier"])
}

func TestClustersAndStrikes(t *testing.T) {
	p, m := newFixture()
	s := New(p, m, nil, false)

	_, body := do(t, s, "/api/v1/clusters")
	assert.Equal(t, []interface{}{}, body["clusters"])

	_, body = do(t, s, "/api/v1/strikes")
	assert.Equal(t, 1.0, body["count"])
}

func TestAlerts(t *testing.T) {
	p, m := newFixture()
	_, body := do(t, New(p, m, nil, false), "/api/v1/alerts")

	assert.Equal(t, "ACTIVE", body["status"])
	assert.Equal(t, []interface{}{"Haifa"}, body["active_places"])
	assert.Len(t, body["log"], 1)
}

func TestSources(t *testing.T) {
	p, m := newFixture()
	_, body := do(t, New(p, m, nil, false), "/api/v1/sources")

	sources := body["sources"].([]interface{})
	require.Len(t, sources, 3)
	fox := sources[0].(map[string]interface{})
	assert.Equal(t, "all strategies failed", fox["error"])
	cnn := sources[1].(map[string]interface{})
	assert.Equal(t, 2.0, cnn["accepted"])
	assert.Equal(t, 120.0, cnn["duration_ms"])
}

func TestBrief(t *testing.T) {
	p, m := newFixture()
	_, body := do(t, New(p, m, nil, false), "/api/v1/brief?limit=2")

	brief := body["brief"].([]interface{})
	require.Len(t, brief, 2)
	assert.Equal(t, "Officials confirm damage to the site.", brief[0].(map[string]interface{})["summary"])
	assert.Equal(t, "Sirens in Haifa", brief[1].(map[string]interface{})["summary"])
}

func TestHealth(t *testing.T) {
	p, m := newFixture()
	s := New(p, m, nil, false)

	rec, body := do(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	m.SetError("every source failed")
	rec, body = do(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "every source failed", body["last_error"])
}

func TestMetricsEndpoint(t *testing.T) {
	p, m := newFixture()
	m.AddStrikes(1)

	rec, _ := do(t, New(p, m, nil, false), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitrep_strikes_total 1")
}

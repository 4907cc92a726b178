package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deusflow/sitrep/internal/alert"
)

// Metrics keeps the health snapshot served on /health and the Prometheus collectors served
// on /metrics. Each instance owns its registry.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	CyclesCompleted int64
	SourceFailures  int64
	AlertsRecorded  int64
	StrikesRecorded int64

	// Timings
	LastCycleTime    time.Duration
	AverageCycleTime time.Duration
	TotalCycleTime   time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool

	registry        *prometheus.Registry
	sourceFetches   *prometheus.CounterVec
	corpusItems     prometheus.Gauge
	escalationScore prometheus.Gauge
	alertsTotal     *prometheus.CounterVec
	strikesTotal    prometheus.Counter
	defenseActive   prometheus.Gauge
	cycleDuration   prometheus.Histogram
}

// New creates metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		IsHealthy: true,
		registry:  reg,
		sourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_source_fetch_total",
			Help: "Feed fetches per source and outcome",
		}, []string{"source", "result"}),
		corpusItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitrep_corpus_items",
			Help: "Accepted items in the current corpus",
		}),
		escalationScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitrep_escalation_score",
			Help: "Current normalized escalation score (0-100)",
		}),
		alertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_alerts_total",
			Help: "Alert events recorded, by kind",
		}, []string{"kind"}),
		strikesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitrep_strikes_total",
			Help: "Strike records created",
		}),
		defenseActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitrep_defense_active",
			Help: "1 while the defense status is ACTIVE",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitrep_cycle_duration_seconds",
			Help:    "Duration of a full fetch cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
	}
}

// RecordSourceFetch counts one source outcome of a cycle.
func (m *Metrics) RecordSourceFetch(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		m.mu.Lock()
		m.SourceFailures++
		m.mu.Unlock()
	}
	m.sourceFetches.WithLabelValues(source, result).Inc()
}

// RecordCycle stores the outcome of a completed cycle and marks the process healthy.
func (m *Metrics) RecordCycle(duration time.Duration, items, score int) {
	m.corpusItems.Set(float64(items))
	m.escalationScore.Set(float64(score))
	m.cycleDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.CyclesCompleted++
	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CyclesCompleted)
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

// AddStrikes counts new strike records.
func (m *Metrics) AddStrikes(n int) {
	if n <= 0 {
		return
	}
	m.strikesTotal.Add(float64(n))
	m.mu.Lock()
	m.StrikesRecorded += int64(n)
	m.mu.Unlock()
}

// SetDefenseStatus mirrors the aggregator status.
func (m *Metrics) SetDefenseStatus(s alert.Status) {
	if s == alert.StatusActive {
		m.defenseActive.Set(1)
		return
	}
	m.defenseActive.Set(0)
}

// OnAlert counts an accepted alert event and follows the status it implies.
func (m *Metrics) OnAlert(_ context.Context, ev alert.Event) {
	m.alertsTotal.WithLabelValues(string(ev.Kind)).Inc()
	if ev.HasPlaces() {
		m.SetDefenseStatus(alert.StatusActive)
	} else {
		m.SetDefenseStatus(alert.StatusNominal)
	}
	m.mu.Lock()
	m.AlertsRecorded++
	m.mu.Unlock()
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// Healthy reports the health flag.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"cycles_completed":      m.CyclesCompleted,
		"source_failures":       m.SourceFailures,
		"alerts_recorded":       m.AlertsRecorded,
		"strikes_recorded":      m.StrikesRecorded,
		"last_cycle_time_ms":    m.LastCycleTime.Milliseconds(),
		"average_cycle_time_ms": m.AverageCycleTime.Milliseconds(),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
	if !m.LastRunTime.IsZero() {
		stats["last_run_time"] = m.LastRunTime.Format(time.RFC3339)
	}
	if !m.LastErrorTime.IsZero() {
		stats["last_error_time"] = m.LastErrorTime.Format(time.RFC3339)
	}
	return stats
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition of this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

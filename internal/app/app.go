// Package app wires the pipeline: it owns the components, runs fetch cycles and alert channels
// on their schedules and publishes the derived view.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/config"
	"github.com/deusflow/sitrep/internal/corpus"
	"github.com/deusflow/sitrep/internal/escalation"
	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/metrics"
	"github.com/deusflow/sitrep/internal/narrative"
	"github.com/deusflow/sitrep/internal/news"
	"github.com/deusflow/sitrep/internal/ratelimit"
	"github.com/deusflow/sitrep/internal/rss"
	"github.com/deusflow/sitrep/internal/strike"
	"github.com/deusflow/sitrep/internal/telegram"
	"github.com/deusflow/sitrep/internal/transport"
)

// View is the derived state of one cycle. It is published as a whole.
type View struct {
	Snapshot   *corpus.Snapshot
	Score      escalation.Score
	Clusters   []narrative.Cluster
	NewStrikes []strike.Record
	Duration   time.Duration
}

// Pipeline owns every component of the monitor.
type Pipeline struct {
	cfg     *config.Config
	catalog *config.Catalog
	log     logger.Logger

	limiter    *ratelimit.HostLimiter
	transport  *transport.Client
	classifier *news.Classifier
	store      *corpus.Store
	scorer     *escalation.Scorer
	clusterer  *narrative.Clusterer
	detector   *strike.Detector
	aggregator *alert.Aggregator
	poller     *alert.Poller
	listener   *alert.Listener
	notifier   *telegram.Notifier
	metrics    *metrics.Metrics

	view atomic.Pointer[View]
}

// New builds the pipeline from configuration and the rule catalog.
func New(cfg *config.Config, cat *config.Catalog, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNop()
	}

	scorer, err := escalation.NewScorer(cat.Escalation.Weights, cat.Escalation.Ceiling, cat.Escalation.Window)
	if err != nil {
		return nil, fmt.Errorf("escalation scorer: %w", err)
	}
	clusterer, err := narrative.NewClusterer(cat.Narrative.Topics)
	if err != nil {
		return nil, fmt.Errorf("narrative clusterer: %w", err)
	}
	detector, err := strike.NewDetector(cat.StrikeConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("strike detector: %w", err)
	}

	limiter := ratelimit.NewHostLimiter(cfg.ProxyRatePerSecond, cfg.ProxyBurst)
	client := transport.New(
		transport.Chain(cfg.ProxyPrimaryURL, cfg.ProxySecondaryURL),
		transport.Options{
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
			Limiter:   limiter,
			Logger:    log.With(logger.String("component", "transport")),
		},
	)
	classifier := news.NewClassifier(cat.ClassifierRules())
	collector := rss.NewCollector(client, classifier, log.With(logger.String("component", "rss")))
	store := corpus.NewStore(collector, cat.NewsSources(), log.With(logger.String("component", "corpus")))

	m := metrics.New()
	agg := alert.NewAggregator(cfg.AlertLogCapacity, log.With(logger.String("component", "alerts")), m)

	p := &Pipeline{
		cfg:        cfg,
		catalog:    cat,
		log:        log,
		limiter:    limiter,
		transport:  client,
		classifier: classifier,
		store:      store,
		scorer:     scorer,
		clusterer:  clusterer,
		detector:   detector,
		aggregator: agg,
		metrics:    m,
	}
	p.poller = alert.NewPoller(client, cfg.AlertURL, agg, log.With(logger.String("component", "poller")))

	if cfg.LiveAlertURL != "" {
		// Streams stay open indefinitely; only the context ends them.
		p.listener = alert.NewListener(&http.Client{}, cfg.LiveAlertURL, cfg.UserAgent,
			cfg.LiveReconnectDelay, agg, log.With(logger.String("component", "listener")))
	}
	if cfg.TelegramEnabled() {
		tg := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, log.With(logger.String("component", "telegram")))
		p.notifier = telegram.NewNotifier(tg, telegram.DefaultQueueSize, log.With(logger.String("component", "telegram")))
		agg.Register(p.notifier)
	}

	p.view.Store(&View{Snapshot: store.Current()})
	return p, nil
}

// RunCycle refreshes the corpus, runs the analyzers on the new snapshot and publishes the view.
// New strikes are handed to the aggregator, which must be running.
func (p *Pipeline) RunCycle(ctx context.Context) (*View, error) {
	start := time.Now()
	snap := p.store.Refresh(ctx)

	failed := 0
	for _, r := range snap.Reports {
		p.metrics.RecordSourceFetch(r.Key, r.Err)
		if r.Err != nil {
			failed++
		}
	}

	v := &View{Snapshot: snap}
	var g errgroup.Group
	g.Go(func() error {
		v.Score = p.scorer.Score(snap.Items)
		return nil
	})
	g.Go(func() error {
		v.Clusters = p.clusterer.Cluster(snap.Items)
		return nil
	})
	g.Go(func() error {
		v.NewStrikes = p.detector.Detect(snap.Items)
		return nil
	})
	_ = g.Wait()
	v.Duration = time.Since(start)
	p.view.Store(v)

	p.metrics.RecordCycle(v.Duration, snap.Len(), v.Score.Value)
	p.metrics.AddStrikes(len(v.NewStrikes))
	if len(snap.Reports) > 0 && failed == len(snap.Reports) {
		p.metrics.SetError("every source failed in the last cycle")
	}

	p.log.Info("Cycle completed",
		logger.Uint64("cycle", snap.Cycle),
		logger.Int("items", snap.Len()),
		logger.Int("failed_sources", failed),
		logger.Int("score", v.Score.Value),
		logger.String("tier", v.Score.Tier.String()),
		logger.Int("clusters", len(v.Clusters)),
		logger.Int("new_strikes", len(v.NewStrikes)),
		logger.Duration("duration", v.Duration),
	)

	var errs []error
	for _, r := range v.NewStrikes {
		if _, err := p.aggregator.Submit(ctx, r.Event()); err != nil {
			errs = append(errs, fmt.Errorf("submit strike %s: %w", r.ID, err))
		}
	}
	return v, errors.Join(errs...)
}

// RunOnce runs a single cycle with a temporary aggregator loop.
func (p *Pipeline) RunOnce(ctx context.Context) (*View, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.aggregator.Run(ctx)
	}()
	v, err := p.RunCycle(ctx)
	cancel()
	<-done
	return v, err
}

// PollAlerts runs one historical poll. Failures are logged by the poller.
func (p *Pipeline) PollAlerts(ctx context.Context) error {
	err := p.poller.Poll(ctx)
	// A clear produces no event, so the gauge follows the aggregator here.
	p.metrics.SetDefenseStatus(p.aggregator.Status())
	return err
}

// View returns the latest published view.
func (p *Pipeline) View() *View { return p.view.Load() }

// Snapshot returns the corpus of the latest view.
func (p *Pipeline) Snapshot() *corpus.Snapshot { return p.View().Snapshot }

// Escalation returns the latest score.
func (p *Pipeline) Escalation() escalation.Score { return p.View().Score }

// Clusters returns the latest clusters.
func (p *Pipeline) Clusters() []narrative.Cluster { return p.View().Clusters }

// Strikes returns the live strike records, newest first.
func (p *Pipeline) Strikes() []strike.Record { return p.detector.Records() }

// Alerts returns the alert state.
func (p *Pipeline) Alerts() alert.State { return p.aggregator.State() }

// Sources returns the configured feeds.
func (p *Pipeline) Sources() []news.Source { return p.store.Sources() }

// Classifier returns the relevance classifier.
func (p *Pipeline) Classifier() *news.Classifier { return p.classifier }

// Metrics returns the metrics instance.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.metrics }

// Transport returns the fetch client.
func (p *Pipeline) Transport() *transport.Client { return p.transport }

// LimiterStats reports the per-host limiter state.
func (p *Pipeline) LimiterStats() map[string]interface{} { return p.limiter.GetStats() }

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Run starts the aggregator, the alert channels, the schedules and, when enabled, the HTTP
// server, and blocks until ctx is done. The first fetch cycle starts immediately.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(p.aggregator.Run(ctx))
	})
	if p.notifier != nil {
		g.Go(func() error {
			p.notifier.Run(ctx)
			return nil
		})
	}
	if p.listener != nil {
		g.Go(func() error {
			return ignoreCanceled(p.listener.Run(ctx))
		})
	}
	if p.cfg.EnableHTTP {
		srv := server.New(p, p.metrics, p.log.With(logger.String("component", "http")), p.cfg.Debug).
			HTTPServer(p.cfg.HTTPPort)
		g.Go(func() error {
			p.log.Info("HTTP server listening", logger.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	c, cycleID, err := p.schedule(ctx)
	if err != nil {
		return err
	}
	c.Start()
	p.log.Info("Scheduler started",
		logger.Duration("fetch_interval", p.cfg.FetchInterval),
		logger.Duration("alert_poll_interval", p.cfg.AlertPollInterval),
		logger.Int("sources", len(p.store.Sources())),
	)
	// Through the wrapped job so that the first cycle also counts for SkipIfStillRunning.
	go c.Entry(cycleID).WrappedJob.Run()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	p.log.Info("Scheduler stopped")

	return g.Wait()
}

func (p *Pipeline) schedule(ctx context.Context) (*cron.Cron, cron.EntryID, error) {
	cl := cronLogger{log: p.log.With(logger.String("component", "cron"))}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	cycleID, err := c.AddFunc(every(p.cfg.FetchInterval), func() {
		if _, err := p.RunCycle(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("Cycle finished with errors", logger.Err(err))
		}
	})
	if err != nil {
		return nil, 0, fmt.Errorf("schedule fetch cycle: %w", err)
	}
	if _, err := c.AddFunc(every(p.cfg.AlertPollInterval), func() {
		_ = p.PollAlerts(ctx)
	}); err != nil {
		return nil, 0, fmt.Errorf("schedule alert poll: %w", err)
	}
	return c, cycleID, nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cronLogger adapts the structured logger to cron's key/value logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Err(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}

package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/transport"
)

// Fetcher retrieves a payload for a URL; *transport.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts ...transport.FetchOption) (*transport.Result, error)
}

// Poller reads the historical alert endpoint and feeds the aggregator.
type Poller struct {
	fetcher Fetcher
	url     string
	agg     *Aggregator
	log     logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	lastKey string
}

// NewPoller creates a poller for url.
func NewPoller(f Fetcher, url string, agg *Aggregator, log logger.Logger) *Poller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Poller{fetcher: f, url: url, agg: agg, log: log, now: time.Now}
}

// Poll performs one request. "No content" or a payload without places and title clears the
// status. A payload identical to the previous one is not submitted again until the next
// clear. Failures leave the status untouched and are returned after being logged.
func (p *Poller) Poll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.fetcher.Fetch(ctx, p.url, transport.AcceptEmpty())
	if err != nil {
		p.log.Warn("Alert poll failed, keeping current status",
			logger.String("url", p.url),
			logger.Err(err),
		)
		return fmt.Errorf("poll alerts: %w", err)
	}
	if res.NoContent {
		return p.clear(ctx)
	}

	payload, err := DecodePayload(res.Body)
	if errors.Is(err, ErrEmptyPayload) {
		return p.clear(ctx)
	}
	if err != nil {
		p.log.Warn("Alert payload unreadable, keeping current status", logger.Err(err))
		return err
	}

	ev := payload.Event(KindHistorical, p.now().UTC())
	if ev.Empty() {
		return p.clear(ctx)
	}

	key := payload.Key()
	if key == p.lastKey {
		return nil
	}
	if _, err := p.agg.Submit(ctx, ev); err != nil {
		return fmt.Errorf("submit historical alert: %w", err)
	}
	p.lastKey = key
	return nil
}

func (p *Poller) clear(ctx context.Context) error {
	p.lastKey = ""
	if err := p.agg.Clear(ctx); err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}
	return nil
}

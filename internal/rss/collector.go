package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/news"
	"github.com/deusflow/sitrep/internal/transport"
)

// Fetcher retrieves a payload for a URL; *transport.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts ...transport.FetchOption) (*transport.Result, error)
}

// Collector fetches one source, parses it and keeps what the classifier accepts.
type Collector struct {
	fetcher    Fetcher
	classifier *news.Classifier
	log        logger.Logger
	now        func() time.Time
}

// NewCollector wires a collector.
func NewCollector(f Fetcher, c *news.Classifier, log logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{fetcher: f, classifier: c, log: log, now: time.Now}
}

// Collect returns the accepted items of src, or the transport/parse error.
func (c *Collector) Collect(ctx context.Context, src news.Source) ([]news.Item, error) {
	res, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Key, err)
	}
	if res.NoContent {
		c.log.Debug("Source returned no content", logger.String("source", src.Key))
		return nil, nil
	}

	parsed, err := Parse(res.Body, src, c.now())
	if err != nil {
		return nil, err
	}

	accepted := make([]news.Item, 0, len(parsed))
	for _, it := range parsed {
		if !c.classifier.Accept(it, src) {
			c.log.Debug("Item rejected",
				logger.String("source", src.Key),
				logger.String("title", it.Title),
			)
			continue
		}
		accepted = append(accepted, it)
	}

	c.log.Debug("Source collected",
		logger.String("source", src.Key),
		logger.String("strategy", res.Strategy),
		logger.Int("parsed", len(parsed)),
		logger.Int("accepted", len(accepted)),
	)
	return accepted, nil
}

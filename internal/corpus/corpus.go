// Package corpus holds the per-cycle, newest-first set of accepted news items.
package corpus

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/news"
)

// Collector returns the accepted items of one source.
type Collector interface {
	Collect(ctx context.Context, src news.Source) ([]news.Item, error)
}

// SourceReport is the outcome of one source in one cycle.
type SourceReport struct {
	Key      string        `json:"key"`
	Accepted int           `json:"accepted"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Error returns the failure text, empty on success.
func (r SourceReport) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Snapshot is one complete cycle's corpus. It is never modified after publication.
type Snapshot struct {
	Cycle       uint64
	CompletedAt time.Time
	Items       []news.Item
	Reports     []SourceReport
}

// Len returns the number of items.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// Recent returns up to n newest items. The result shares the snapshot's backing array.
func (s *Snapshot) Recent(n int) []news.Item {
	if s == nil || n <= 0 {
		return nil
	}
	if n > len(s.Items) {
		n = len(s.Items)
	}
	return s.Items[:n:n]
}

// BySource returns the items of one source, in corpus order.
func (s *Snapshot) BySource(key string) []news.Item {
	if s == nil {
		return nil
	}
	out := make([]news.Item, 0)
	for _, it := range s.Items {
		if it.SourceKey == key {
			out = append(out, it)
		}
	}
	return out
}

// Store fans out to every source each cycle and atomically replaces the snapshot.
type Store struct {
	collector Collector
	sources   []news.Source
	log       logger.Logger
	now       func() time.Time

	current atomic.Pointer[Snapshot]
	cycles  atomic.Uint64
}

// NewStore creates a store over the configured sources. Current is empty until the first Refresh.
func NewStore(c Collector, sources []news.Source, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{
		collector: c,
		sources:   append([]news.Source(nil), sources...),
		log:       log,
		now:       time.Now,
	}
	s.current.Store(&Snapshot{})
	return s
}

// Sources returns the configured sources.
func (s *Store) Sources() []news.Source {
	return append([]news.Source(nil), s.sources...)
}

// Refresh collects every source concurrently, waits for all of them, and publishes the merged
// newest-first result as the new snapshot. A failing source contributes nothing and never
// cancels the others. The previous snapshot is replaced, not merged.
func (s *Store) Refresh(ctx context.Context) *Snapshot {
	results := make([][]news.Item, len(s.sources))
	reports := make([]SourceReport, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			start := time.Now()
			items, err := s.collector.Collect(ctx, src)
			reports[i] = SourceReport{
				Key:      src.Key,
				Accepted: len(items),
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				s.log.Warn("Source fetch failed",
					logger.String("source", src.Key),
					logger.Err(err),
				)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]news.Item, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	snap := &Snapshot{
		Cycle:       s.cycles.Add(1),
		CompletedAt: s.now(),
		Items:       merged,
		Reports:     reports,
	}
	s.current.Store(snap)

	s.log.Info("Corpus refreshed",
		logger.Uint64("cycle", snap.Cycle),
		logger.Int("items", len(merged)),
		logger.Int("sources", len(s.sources)),
	)
	return snap
}

// Current returns the latest complete snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Recent returns up to n newest items of the current snapshot.
func (s *Store) Recent(n int) []news.Item {
	return s.Current().Recent(n)
}

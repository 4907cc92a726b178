// Package strike detects confirmed strikes in the corpus and deduplicates them per place
// inside a time window, expiring records after a TTL.
package strike

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/keyword"
	"github.com/deusflow/sitrep/internal/news"
)

const (
	DefaultScanSize = 50
	DefaultWindow   = time.Hour
	DefaultTTL      = 6 * time.Hour
)

// Place is an entry of the place table.
type Place struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
}

// Record is a deduplicated strike marker for one place.
type Record struct {
	ID         string    `json:"id"`
	City       string    `json:"city"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Title      string    `json:"title"`
	SourceKey  string    `json:"source"`
	Link       string    `json:"link"`
	DetectedAt time.Time `json:"detected_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Event synthesizes the strike-confirmed alert for the record.
func (r Record) Event() alert.Event {
	return alert.NewEvent(alert.KindStrikeConfirmed, "Strike confirmed: "+r.City, []string{r.City}, r.DetectedAt)
}

// Config holds the detector tables and time bounds. Zero values select defaults.
type Config struct {
	Actions  []string
	Places   []Place
	ScanSize int
	Window   time.Duration
	TTL      time.Duration
}

// Detector keeps strike records across cycles.
type Detector struct {
	actions  *keyword.Set
	places   *keyword.Set
	byName   map[string]Place
	scanSize int
	window   time.Duration
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	records []Record
}

// NewDetector compiles the action keywords and the ordered place table.
func NewDetector(cfg Config) (*Detector, error) {
	actions := keyword.NewSet(cfg.Actions)
	if actions.Len() == 0 {
		return nil, errors.New("strike: no action keywords")
	}
	if len(cfg.Places) == 0 {
		return nil, errors.New("strike: empty place table")
	}

	names := make([]string, 0, len(cfg.Places))
	byName := make(map[string]Place, len(cfg.Places))
	for _, p := range cfg.Places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errors.New("strike: place without a name")
		}
		k := keyword.Fold(name)
		if _, dup := byName[k]; dup {
			return nil, fmt.Errorf("strike: duplicate place %q", name)
		}
		p.Name = name
		byName[k] = p
		names = append(names, name)
	}

	d := &Detector{
		actions:  actions,
		places:   keyword.NewSet(names),
		byName:   byName,
		scanSize: cfg.ScanSize,
		window:   cfg.Window,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if d.scanSize <= 0 {
		d.scanSize = DefaultScanSize
	}
	if d.window <= 0 {
		d.window = DefaultWindow
	}
	if d.ttl <= 0 {
		d.ttl = DefaultTTL
	}
	return d, nil
}

// SetClock replaces the wall clock used for eviction.
func (d *Detector) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// Detect scans the newest items of the corpus, records new strikes and returns them in scan
// order. An item is a duplicate when the same place already has a record within the window
// of the item's timestamp. Records older than the TTL are evicted after the scan; items
// already older than the TTL are not recorded.
func (d *Detector) Detect(items []news.Item) []Record {
	if len(items) > d.scanSize {
		items = items[:d.scanSize]
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var fresh []Record
	for _, it := range items {
		if !it.HasTimestamp() || now.Sub(it.PublishedAt) > d.ttl {
			continue
		}
		text := it.Text()
		if !d.actions.Any(text) {
			continue
		}
		key, ok := d.places.First(text)
		if !ok {
			continue
		}
		place := d.byName[key]
		if d.isDuplicate(place.Name, it.PublishedAt) {
			continue
		}

		rec := Record{
			ID:         place.Name + "|" + strconv.FormatInt(it.PublishedAt.Unix(), 10),
			City:       place.Name,
			Lat:        place.Lat,
			Lon:        place.Lon,
			Title:      it.Title,
			SourceKey:  it.SourceKey,
			Link:       it.Link,
			DetectedAt: it.PublishedAt,
			RecordedAt: now,
		}
		d.records = append(d.records, rec)
		fresh = append(fresh, rec)
	}

	d.evict(now)
	return fresh
}

func (d *Detector) isDuplicate(city string, at time.Time) bool {
	for _, r := range d.records {
		if r.City != city {
			continue
		}
		diff := r.DetectedAt.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff < d.window {
			return true
		}
	}
	return false
}

// evict drops records whose age exceeds the TTL; a record exactly TTL old is kept.
func (d *Detector) evict(now time.Time) {
	kept := d.records[:0]
	for _, r := range d.records {
		if now.Sub(r.DetectedAt) > d.ttl {
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(d.records); i++ {
		d.records[i] = Record{}
	}
	d.records = kept
}

// Records returns the live records, newest detection first.
func (d *Detector) Records() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := append([]Record(nil), d.records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out
}

// Places returns the place table in matching order.
func (d *Detector) Places() []Place {
	out := make([]Place, 0, len(d.byName))
	for _, w := range d.places.Words() {
		out = append(out, d.byName[w])
	}
	return out
}

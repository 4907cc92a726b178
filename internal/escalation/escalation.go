// Package escalation scores the most recent corpus items against a weighted keyword table.
package escalation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/deusflow/sitrep/internal/keyword"
	"github.com/deusflow/sitrep/internal/news"
)

const (
	DefaultWindow  = 30
	DefaultCeiling = 200.0
)

// Tier is the coarse escalation band.
type Tier int

const (
	Nominal Tier = iota
	Elevated
	Critical
)

func (t Tier) String() string {
	switch t {
	case Elevated:
		return "elevated"
	case Critical:
		return "critical"
	default:
		return "nominal"
	}
}

// MarshalText renders the tier by name in JSON.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TierFor maps a score: nominal up to 40, elevated up to 75, critical above.
func TierFor(value int) Tier {
	switch {
	case value > 75:
		return Critical
	case value > 40:
		return Elevated
	default:
		return Nominal
	}
}

// Normalize computes min(round(total/ceiling*100), 100), never below zero.
func Normalize(total, ceiling float64) int {
	if ceiling <= 0 || total <= 0 {
		return 0
	}
	v := math.Round(total / ceiling * 100)
	if v > 100 {
		return 100
	}
	return int(v)
}

// Weight is one row of the keyword table.
type Weight struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Weight  int    `yaml:"weight" json:"weight"`
}

// Score is the outcome of one scoring pass.
type Score struct {
	Value int  `json:"value"`
	Tier  Tier `json:"tier"`
	Total int  `json:"total"`
	Items int  `json:"items"`
	// Hits counts, per keyword, the items it matched.
	Hits map[string]int `json:"hits,omitempty"`
}

// Scorer holds the compiled weight table.
type Scorer struct {
	set     *keyword.Set
	weights map[string]int
	ceiling float64
	window  int
}

// NewScorer validates and compiles the table. Weights must be positive so that adding
// items can never lower the score.
func NewScorer(weights []Weight, ceiling float64, window int) (*Scorer, error) {
	if len(weights) == 0 {
		return nil, errors.New("escalation: empty weight table")
	}
	if ceiling <= 0 {
		return nil, fmt.Errorf("escalation: ceiling must be positive, got %v", ceiling)
	}
	if window <= 0 {
		window = DefaultWindow
	}

	words := make([]string, 0, len(weights))
	table := make(map[string]int, len(weights))
	for _, w := range weights {
		if w.Weight <= 0 {
			return nil, fmt.Errorf("escalation: weight of %q must be positive, got %d", w.Keyword, w.Weight)
		}
		k := keyword.Fold(strings.TrimSpace(w.Keyword))
		if k == "" {
			return nil, errors.New("escalation: blank keyword in weight table")
		}
		if _, dup := table[k]; dup {
			continue
		}
		table[k] = w.Weight
		words = append(words, w.Keyword)
	}

	return &Scorer{
		set:     keyword.NewSet(words),
		weights: table,
		ceiling: ceiling,
		window:  window,
	}, nil
}

// Window is the number of newest items scored.
func (s *Scorer) Window() int { return s.window }

// Score sums, over the newest Window items, the weight of every distinct keyword each item
// contains, and normalizes the total.
func (s *Scorer) Score(items []news.Item) Score {
	if len(items) > s.window {
		items = items[:s.window]
	}

	var total int
	hits := make(map[string]int)
	for _, it := range items {
		for _, k := range s.set.Matches(it.Text()) {
			total += s.weights[k]
			hits[k]++
		}
	}

	value := Normalize(float64(total), s.ceiling)
	return Score{
		Value: value,
		Tier:  TierFor(value),
		Total: total,
		Items: len(items),
		Hits:  hits,
	}
}

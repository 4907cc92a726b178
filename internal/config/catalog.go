package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/sitrep/internal/escalation"
	"github.com/deusflow/sitrep/internal/narrative"
	"github.com/deusflow/sitrep/internal/news"
	"github.com/deusflow/sitrep/internal/strike"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the rule data: sources, keyword sets, weights, taxonomy and place table.
// It is loaded once at start-up.
type Catalog struct {
	Sources    []SourceSpec   `yaml:"sources"`
	Classifier ClassifierSpec `yaml:"classifier"`
	Escalation EscalationSpec `yaml:"escalation"`
	Narrative  NarrativeSpec  `yaml:"narrative"`
	Strike     StrikeSpec     `yaml:"strike"`
}

type SourceSpec struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Relaxed bool   `yaml:"relaxed"`
}

type ClassifierSpec struct {
	BreakingMarker  string   `yaml:"breaking_marker"`
	MinExcerptRunes int      `yaml:"min_excerpt_runes"`
	AdPhrases       []string `yaml:"ad_phrases"`
	AdLinkSegments  []string `yaml:"ad_link_segments"`
	Locations       []string `yaml:"locations"`
	Conflicts       []string `yaml:"conflicts"`
	Strong          []string `yaml:"strong"`
	RelaxedTerms    []string `yaml:"relaxed_terms"`
}

type EscalationSpec struct {
	Ceiling float64             `yaml:"ceiling"`
	Window  int                 `yaml:"window"`
	Weights []escalation.Weight `yaml:"weights"`
}

type NarrativeSpec struct {
	Topics []narrative.Topic `yaml:"topics"`
}

type StrikeSpec struct {
	ScanSize int            `yaml:"scan_size"`
	Actions  []string       `yaml:"actions"`
	Places   []strike.Place `yaml:"places"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects catalogs the pipeline cannot run with.
func (c *Catalog) Validate() error {
	var errs []error

	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("catalog: no sources"))
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		key := strings.TrimSpace(s.Key)
		switch {
		case key == "":
			errs = append(errs, fmt.Errorf("catalog: source %d has no key", i))
		case seen[key]:
			errs = append(errs, fmt.Errorf("catalog: duplicate source key %q", key))
		}
		seen[key] = true
		if err := validateURL("source "+key, s.URL); err != nil {
			errs = append(errs, fmt.Errorf("catalog: %w", err))
		}
	}

	if len(c.Escalation.Weights) == 0 {
		errs = append(errs, errors.New("catalog: empty escalation weight table"))
	}
	for _, w := range c.Escalation.Weights {
		if w.Weight <= 0 {
			errs = append(errs, fmt.Errorf("catalog: weight of %q must be positive", w.Keyword))
		}
	}
	if c.Escalation.Ceiling <= 0 {
		errs = append(errs, errors.New("catalog: escalation ceiling must be positive"))
	}

	if len(c.Narrative.Topics) == 0 {
		errs = append(errs, errors.New("catalog: empty narrative taxonomy"))
	}
	if len(c.Strike.Actions) == 0 {
		errs = append(errs, errors.New("catalog: no strike actions"))
	}
	if len(c.Strike.Places) == 0 {
		errs = append(errs, errors.New("catalog: empty place table"))
	}
	if len(c.Classifier.Locations) == 0 || len(c.Classifier.Conflicts) == 0 {
		errs = append(errs, errors.New("catalog: classifier needs location and conflict keywords"))
	}

	return errors.Join(errs...)
}

// NewsSources converts the source list.
func (c *Catalog) NewsSources() []news.Source {
	out := make([]news.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, news.Source{
			Key:     strings.TrimSpace(s.Key),
			Name:    s.Name,
			URL:     strings.TrimSpace(s.URL),
			Relaxed: s.Relaxed,
		})
	}
	return out
}

// Source looks up a source by key.
func (c *Catalog) Source(key string) (news.Source, bool) {
	for _, s := range c.NewsSources() {
		if s.Key == key {
			return s, true
		}
	}
	return news.Source{}, false
}

// ClassifierRules converts the classifier section.
func (c *Catalog) ClassifierRules() news.Rules {
	cs := c.Classifier
	return news.Rules{
		AdPhrases:       cs.AdPhrases,
		AdLinkSegments:  cs.AdLinkSegments,
		BreakingMarker:  cs.BreakingMarker,
		MinExcerptRunes: cs.MinExcerptRunes,
		Locations:       cs.Locations,
		Conflicts:       cs.Conflicts,
		Strong:          cs.Strong,
		RelaxedTerms:    cs.RelaxedTerms,
	}
}

// StrikeConfig combines the strike section with the time bounds from the environment.
func (c *Catalog) StrikeConfig(cfg *Config) strike.Config {
	sc := strike.Config{
		Actions:  c.Strike.Actions,
		Places:   c.Strike.Places,
		ScanSize: c.Strike.ScanSize,
	}
	if cfg != nil {
		sc.Window = cfg.StrikeDedupWindow
		sc.TTL = cfg.StrikeTTL
	}
	return sc
}

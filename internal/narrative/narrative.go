// Package narrative groups corpus items under a fixed topic taxonomy and surfaces only the
// topics covered by more than one item.
package narrative

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deusflow/sitrep/internal/keyword"
	"github.com/deusflow/sitrep/internal/news"
)

const (
	DefaultMaxMembers = 3
	DefaultMinMembers = 2
)

// Topic is one taxonomy entry.
type Topic struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Cluster is a corroborated topic with its first matching items in corpus order.
type Cluster struct {
	Topic    string      `json:"topic"`
	Keywords []string    `json:"keywords"`
	Members  []news.Item `json:"members"`
}

type compiled struct {
	topic Topic
	set   *keyword.Set
}

// Clusterer holds the compiled taxonomy.
type Clusterer struct {
	topics     []compiled
	maxMembers int
	minMembers int
}

// NewClusterer compiles topics in the given order.
func NewClusterer(topics []Topic) (*Clusterer, error) {
	if len(topics) == 0 {
		return nil, errors.New("narrative: empty taxonomy")
	}
	c := &Clusterer{maxMembers: DefaultMaxMembers, minMembers: DefaultMinMembers}
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, errors.New("narrative: topic without a name")
		}
		if seen[name] {
			return nil, fmt.Errorf("narrative: duplicate topic %q", name)
		}
		seen[name] = true

		set := keyword.NewSet(t.Keywords)
		if set.Len() == 0 {
			return nil, fmt.Errorf("narrative: topic %q has no keywords", name)
		}
		c.topics = append(c.topics, compiled{
			topic: Topic{Name: name, Keywords: set.Words()},
			set:   set,
		})
	}
	return c, nil
}

// Topics returns the taxonomy in output order.
func (c *Clusterer) Topics() []Topic {
	out := make([]Topic, 0, len(c.topics))
	for _, t := range c.topics {
		out = append(out, t.topic)
	}
	return out
}

// Cluster returns, in taxonomy order, every topic matched by at least two items, each with
// at most three members.
func (c *Clusterer) Cluster(items []news.Item) []Cluster {
	var out []Cluster
	for _, t := range c.topics {
		var members []news.Item
		for _, it := range items {
			if !t.set.Any(it.Text()) {
				continue
			}
			members = append(members, it)
			if len(members) == c.maxMembers {
				break
			}
		}
		if len(members) < c.minMembers {
			continue
		}
		out = append(out, Cluster{
			Topic:    t.topic.Name,
			Keywords: append([]string(nil), t.topic.Keywords...),
			Members:  members,
		})
	}
	return out
}

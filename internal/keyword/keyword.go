// Package keyword implements case-insensitive multi-keyword matching over news text.
//
// A Set compiles its keywords into a single Aho-Corasick automaton so one pass over the
// text finds every keyword. Keywords match as case-insensitive substrings; a set built with
// NewBoundedSet additionally requires short keywords to stand on word boundaries.
package keyword

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
)

// shortKeywordRunes is the length at or below which a keyword needs word boundaries.
const shortKeywordRunes = 3

// Set is an ordered, deduplicated keyword set.
type Set struct {
	mu      sync.Mutex // the matcher mutates internal counters while matching
	matcher *ahocorasick.Matcher
	words   []string
	index   map[string]int
	bounded map[int]*regexp.Regexp
}

// NewSet compiles words for substring matching. Keywords are case folded and trimmed;
// blanks are dropped and duplicates keep their first position.
func NewSet(words []string) *Set {
	return newSet(words, false)
}

// NewBoundedSet is NewSet where keywords of three runes or fewer only match on word
// boundaries, so "war" does not fire inside "toward".
func NewBoundedSet(words []string) *Set {
	return newSet(words, true)
}

func newSet(words []string, bounded bool) *Set {
	s := &Set{
		index:   make(map[string]int, len(words)),
		bounded: make(map[int]*regexp.Regexp),
	}

	for _, w := range words {
		w = Fold(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := s.index[w]; dup {
			continue
		}
		idx := len(s.words)
		s.index[w] = idx
		s.words = append(s.words, w)
		if bounded && utf8.RuneCountInString(w) <= shortKeywordRunes {
			s.bounded[idx] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
		}
	}

	if len(s.words) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(s.words)
	}
	return s
}

// Fold returns the case-folded form of text used for matching.
func Fold(text string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(text)
}

// Len returns the number of distinct keywords.
func (s *Set) Len() int {
	return len(s.words)
}

// Words returns the folded keywords in set order.
func (s *Set) Words() []string {
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// Matches returns the distinct keywords found in text, in set order.
func (s *Set) Matches(text string) []string {
	hits := s.hits(text)
	if len(hits) == 0 {
		return nil
	}
	out := make([]string, 0, len(hits))
	for i, w := range s.words {
		if hits[i] {
			out = append(out, w)
		}
	}
	return out
}

// Any reports whether at least one keyword occurs in text.
func (s *Set) Any(text string) bool {
	return len(s.hits(text)) > 0
}

// First returns the earliest keyword in set order that occurs in text.
func (s *Set) First(text string) (string, bool) {
	hits := s.hits(text)
	if len(hits) == 0 {
		return "", false
	}
	for i, w := range s.words {
		if hits[i] {
			return w, true
		}
	}
	return "", false
}

// hits maps keyword index to presence for every keyword found in text.
func (s *Set) hits(text string) map[int]bool {
	if s.matcher == nil || text == "" {
		return nil
	}
	folded := Fold(text)

	s.mu.Lock()
	raw := s.matcher.Match([]byte(folded))
	s.mu.Unlock()

	if len(raw) == 0 {
		return nil
	}
	found := make(map[int]bool, len(raw))
	for _, idx := range raw {
		if idx < 0 || idx >= len(s.words) || found[idx] {
			continue
		}
		if re, short := s.bounded[idx]; short && !re.MatchString(folded) {
			continue
		}
		found[idx] = true
	}
	return found
}

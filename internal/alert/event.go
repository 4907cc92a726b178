// Package alert merges live, historical and strike-confirmed alert events into one capped log
// and derives the defense status from it.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the channel an event arrived on.
type Kind string

const (
	KindLive            Kind = "live"
	KindHistorical      Kind = "historical"
	KindStrikeConfirmed Kind = "strike_confirmed"
)

// Status is the derived defense status.
type Status string

const (
	StatusNominal Status = "NOMINAL"
	StatusActive  Status = "ACTIVE"
)

// Event is one entry of the alert log.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Places    []string  `json:"places"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID. A zero ts is replaced by the current time.
func NewEvent(kind Kind, title string, places []string, ts time.Time) Event {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Places:    append([]string(nil), places...),
		Timestamp: ts,
	}
}

// Empty reports an event carrying neither a title nor places.
func (e Event) Empty() bool {
	return e.Title == "" && len(e.Places) == 0
}

// HasPlaces reports whether the event names at least one place.
func (e Event) HasPlaces() bool {
	return len(e.Places) > 0
}

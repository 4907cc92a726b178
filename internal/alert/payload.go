package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultTitle names events whose payload lists places without a title.
const DefaultTitle = "Missile Attack"

// msThreshold separates epoch milliseconds from epoch seconds.
const msThreshold = 1e12

// ErrEmptyPayload is returned for a blank alert body.
var ErrEmptyPayload = errors.New("empty alert payload")

var (
	utf8BOM = []byte("\xef\xbb\xbf")
	strict  = bluemonday.StrictPolicy()
)

// Payload is the wire shape shared by the historical endpoint and the live stream.
type Payload struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Title     string          `json:"title"`
	Data      []string        `json:"data"`
	Desc      string          `json:"desc,omitempty"`
	Timestamp json.Number     `json:"timestamp,omitempty"`
}

// DecodePayload parses an alert body, tolerating a UTF-8 byte order mark.
func DecodePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	if len(body) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, fmt.Errorf("decode alert payload: %w", err)
	}
	return p, nil
}

// Key identifies the payload for consecutive-duplicate suppression.
func (p Payload) Key() string {
	if id := strings.Trim(strings.TrimSpace(string(p.ID)), `"`); id != "" && id != "null" {
		return "id:" + id
	}
	return "content:" + sanitize(p.Title) + "|" + strings.Join(p.places(), "|")
}

// Time converts the epoch timestamp; values of 1e12 and above are milliseconds.
// It returns the zero time when the payload carries none.
func (p Payload) Time() time.Time {
	if p.Timestamp == "" {
		return time.Time{}
	}
	v, err := p.Timestamp.Float64()
	if err != nil || v <= 0 {
		return time.Time{}
	}
	if v >= msThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// Event converts the payload into a sanitized event of the given kind. A zero payload time
// falls back to now.
func (p Payload) Event(kind Kind, now time.Time) Event {
	places := p.places()
	title := sanitize(p.Title)
	if title == "" && len(places) > 0 {
		title = DefaultTitle
	}
	ts := p.Time()
	if ts.IsZero() {
		ts = now
	}
	return NewEvent(kind, title, places, ts)
}

func (p Payload) places() []string {
	out := make([]string, 0, len(p.Data))
	for _, d := range p.Data {
		if s := sanitize(d); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitize strips markup from untrusted text and collapses whitespace.
func sanitize(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	body := []byte("\xef\xbb\xbf" + `{"id":"133","title":"ירי רקטות וטילים","data":["שדרות","אשקלון"],"desc":"היכנסו למרחב המוגן"}`)

	p, err := DecodePayload(body)

	require.NoError(t, err)
	assert.Equal(t, "ירי רקטות וטילים", p.Title)
	assert.Equal(t, []string{"שדרות", "אשקלון"}, p.Data)
	assert.Equal(t, "id:133", p.Key())
}

func TestDecodePayload_Errors(t *testing.T) {
	_, err := DecodePayload([]byte("\xef\xbb\xbf \r\n"))
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodePayload([]byte(`{"title":`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyPayload)
}

func TestPayload_TimeUnits(t *testing.T) {
	seconds := Payload{Timestamp: "1781236800"}
	millis := Payload{Timestamp: "1781236800000"}
	none := Payload{}

	want := time.Unix(1781236800, 0).UTC()
	assert.Equal(t, want, seconds.Time())
	assert.Equal(t, want, millis.Time())
	assert.True(t, none.Time().IsZero())
}

func TestPayload_EventDefaultsAndSanitizes(t *testing.T) {
	now := time.Date(2026, 6, 13, 4, 0, 0, 0, time.UTC)
	p := Payload{Data: []string{"<b>Haifa</b>", "  ", `Kiryat <script>alert(1)</script>Shmona`}}

	ev := p.Event(KindLive, now)

	assert.Equal(t, DefaultTitle, ev.Title)
	assert.Equal(t, []string{"Haifa", "Kiryat Shmona"}, ev.Places)
	assert.Equal(t, now, ev.Timestamp)
	assert.Equal(t, KindLive, ev.Kind)
	assert.NotEmpty(t, ev.ID)
}

func TestPayload_EventWithoutPlacesKeepsTitle(t *testing.T) {
	ev := Payload{Title: "Home Front Command update"}.Event(KindHistorical, time.Now())

	assert.Equal(t, "Home Front Command update", ev.Title)
	assert.False(t, ev.HasPlaces())
	assert.False(t, ev.Empty())
}

func TestPayload_KeyWithoutID(t *testing.T) {
	a := Payload{Title: "Rockets", Data: []string{"Sderot"}}
	b := Payload{Title: "Rockets", Data: []string{"Sderot"}, ID: []byte("null")}
	c := Payload{Title: "Rockets", Data: []string{"Ashkelon"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

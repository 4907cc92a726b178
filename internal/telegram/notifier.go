package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/logger"
)

// DefaultQueueSize bounds the number of alerts waiting to be sent.
const DefaultQueueSize = 32

// Sender delivers a formatted message.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Notifier is an alert.Observer that hands events to a background sender. OnAlert never blocks;
// when the queue is full the event is dropped and logged.
type Notifier struct {
	sender Sender
	queue  chan alert.Event
	log    logger.Logger
}

// NewNotifier creates a notifier with the given queue size.
func NewNotifier(sender Sender, queueSize int, log logger.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{
		sender: sender,
		queue:  make(chan alert.Event, queueSize),
		log:    log,
	}
}

// OnAlert enqueues ev.
func (n *Notifier) OnAlert(_ context.Context, ev alert.Event) {
	select {
	case n.queue <- ev:
	default:
		n.log.Warn("Telegram queue full, alert dropped", logger.String("id", ev.ID))
	}
}

// Run sends queued alerts until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			if err := n.sender.SendMessage(ctx, FormatAlert(ev)); err != nil {
				n.log.Error("Failed to send alert to Telegram",
					logger.String("id", ev.ID),
					logger.Err(err),
				)
			}
		}
	}
}

// FormatAlert renders an event as Telegram HTML.
func FormatAlert(ev alert.Event) string {
	var b strings.Builder

	switch ev.Kind {
	case alert.KindStrikeConfirmed:
		b.WriteString("💥 ")
	case alert.KindLive:
		b.WriteString("🚨 ")
	default:
		b.WriteString("⚠️ ")
	}
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(ev.Title))

	if ev.HasPlaces() {
		escaped := make([]string, len(ev.Places))
		for i, p := range ev.Places {
			escaped[i] = html.EscapeString(p)
		}
		fmt.Fprintf(&b, "📍 %s\n", strings.Join(escaped, ", "))
	}

	fmt.Fprintf(&b, "<i>%s · %s UTC</i>", ev.Kind, ev.Timestamp.UTC().Format(time.DateTime))
	return b.String()
}

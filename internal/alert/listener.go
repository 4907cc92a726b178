package alert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
)

// DefaultReconnectDelay is the fixed pause between live stream connections.
const DefaultReconnectDelay = 5 * time.Second

const maxLineBytes = 1 << 20

var errStreamClosed = errors.New("live alert stream closed")

// Listener consumes a push stream of alert payloads: newline-delimited JSON or server-sent
// events whose data lines carry the payload. Every payload becomes a live event.
type Listener struct {
	client    *http.Client
	url       string
	userAgent string
	agg       *Aggregator
	log       logger.Logger
	delay     time.Duration
	now       func() time.Time
}

// NewListener creates a listener for url. The client must not carry a total timeout, as the
// stream stays open indefinitely.
func NewListener(client *http.Client, url, userAgent string, delay time.Duration, agg *Aggregator, log logger.Logger) *Listener {
	if client == nil {
		client = &http.Client{}
	}
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Listener{
		client:    client,
		url:       url,
		userAgent: userAgent,
		agg:       agg,
		log:       log,
		delay:     delay,
		now:       time.Now,
	}
}

// Run keeps a connection open until ctx is done, reconnecting after the fixed delay whenever
// the stream ends or fails.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("Live alert stream interrupted, reconnecting",
			logger.String("url", l.url),
			logger.Duration("delay", l.delay),
			logger.Err(err),
		)

		t := time.NewTimer(l.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Listener) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream, application/x-ndjson, application/json")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("live alert stream: HTTP %d", resp.StatusCode)
	}
	l.log.Info("Live alert stream connected", logger.String("url", l.url))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		l.handleLine(ctx, sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

func (l *Listener) handleLine(ctx context.Context, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == ':' {
		return
	}
	if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
		line = bytes.TrimSpace(data)
	} else if !bytes.HasPrefix(line, []byte("{")) && !bytes.HasPrefix(line, utf8BOM) {
		// event:, id:, retry: and other SSE fields
		return
	}

	payload, err := DecodePayload(line)
	if err != nil {
		if !errors.Is(err, ErrEmptyPayload) {
			l.log.Warn("Live alert payload unreadable", logger.Err(err))
		}
		return
	}
	ev := payload.Event(KindLive, l.now().UTC())
	if ev.Empty() {
		return
	}
	if _, err := l.agg.Submit(ctx, ev); err != nil && ctx.Err() == nil {
		l.log.Warn("Live alert not recorded", logger.Err(err))
	}
}

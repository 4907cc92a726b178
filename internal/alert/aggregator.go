package alert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
)

// DefaultCapacity is the size of the alert log.
const DefaultCapacity = 20

// ErrStopped is returned to producers once the aggregator has stopped.
var ErrStopped = errors.New("alert aggregator stopped")

// Observer is notified, in registration order, after each accepted event. Observers run on the
// aggregator goroutine and must not call Submit or Clear.
type Observer interface {
	OnAlert(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// OnAlert calls f.
func (f ObserverFunc) OnAlert(ctx context.Context, ev Event) { f(ctx, ev) }

// State is a read-only view of the aggregator.
type State struct {
	Status       Status    `json:"status"`
	ActivePlaces []string  `json:"active_places"`
	Log          []Event   `json:"log"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type command struct {
	event *Event
	done  chan bool
}

// Aggregator is the single writer of alert state. Producers on any goroutine hand it events
// through Submit and Clear; Run applies them one at a time.
type Aggregator struct {
	capacity int
	log      logger.Logger
	cmds     chan command
	stopped  chan struct{}
	stopOnce sync.Once

	obsMu     sync.RWMutex
	observers []Observer

	state atomic.Pointer[State]
}

// NewAggregator creates an aggregator keeping up to capacity events.
func NewAggregator(capacity int, log logger.Logger, observers ...Observer) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &Aggregator{
		capacity:  capacity,
		log:       log,
		cmds:      make(chan command),
		stopped:   make(chan struct{}),
		observers: append([]Observer(nil), observers...),
	}
	a.state.Store(&State{Status: StatusNominal})
	return a
}

// Register appends an observer.
func (a *Aggregator) Register(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Run applies commands until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	defer a.stopOnce.Do(func() { close(a.stopped) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-a.cmds:
			cmd.done <- a.apply(ctx, cmd)
		}
	}
}

// Submit hands an event to the writer and waits until it has been applied. It reports
// whether the event was accepted; empty events are ignored.
func (a *Aggregator) Submit(ctx context.Context, ev Event) (bool, error) {
	return a.send(ctx, command{event: &ev, done: make(chan bool, 1)})
}

// Clear sets the status to NOMINAL and forgets the active places. The log is kept.
func (a *Aggregator) Clear(ctx context.Context) error {
	_, err := a.send(ctx, command{done: make(chan bool, 1)})
	return err
}

func (a *Aggregator) send(ctx context.Context, cmd command) (bool, error) {
	select {
	case a.cmds <- cmd:
	case <-a.stopped:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-cmd.done:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// State returns the latest published state.
func (a *Aggregator) State() State {
	s := a.state.Load()
	return State{
		Status:       s.Status,
		ActivePlaces: append([]string(nil), s.ActivePlaces...),
		Log:          append([]Event(nil), s.Log...),
		UpdatedAt:    s.UpdatedAt,
	}
}

// Status returns the current defense status.
func (a *Aggregator) Status() Status {
	return a.state.Load().Status
}

func (a *Aggregator) apply(ctx context.Context, cmd command) bool {
	prev := a.state.Load()

	if cmd.event == nil {
		if prev.Status != StatusNominal {
			a.log.Info("Alerts cleared")
		}
		a.state.Store(&State{
			Status:    StatusNominal,
			Log:       prev.Log,
			UpdatedAt: time.Now().UTC(),
		})
		return true
	}

	ev := *cmd.event
	if ev.Empty() {
		return false
	}

	n := len(prev.Log) + 1
	if n > a.capacity {
		n = a.capacity
	}
	entries := make([]Event, 0, n)
	entries = append(entries, ev)
	entries = append(entries, prev.Log[:n-1]...)

	next := &State{
		Status:    StatusNominal,
		Log:       entries,
		UpdatedAt: time.Now().UTC(),
	}
	if ev.HasPlaces() {
		next.Status = StatusActive
		next.ActivePlaces = append([]string(nil), ev.Places...)
	}
	a.state.Store(next)

	a.log.Info("Alert recorded",
		logger.String("kind", string(ev.Kind)),
		logger.String("title", ev.Title),
		logger.Strings("places", ev.Places),
		logger.String("status", string(next.Status)),
	)

	a.obsMu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.obsMu.RUnlock()
	for _, o := range observers {
		o.OnAlert(ctx, ev)
	}
	return true
}

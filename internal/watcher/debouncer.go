package watcher

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultWindow       = 2 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
)

// ErrSourceClosed is returned by Next when the event channel is closed while
// no batch is open.
var ErrSourceClosed = errors.New("watcher: event source closed")

// State is the debouncer's position in its collect cycle.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Batch is the set of paths changed during one quiet window.
type Batch struct {
	Paths  []string
	Opened time.Time
	Closed time.Time
}

// Debouncer collects bursts of events into batches. The first significant
// event opens a batch; everything that arrives within Window of it joins the
// same batch.
//
// A Debouncer is driven by a single goroutine.
type Debouncer struct {
	Window       time.Duration
	PollInterval time.Duration
	Clock        Clock

	state  State
	paths  []string
	seen   map[string]struct{}
	opened time.Time
}

// NewDebouncer creates a debouncer with the given window.
// Zero values select the defaults.
func NewDebouncer(window, pollInterval time.Duration, clock Clock) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Debouncer{
		Window:       window,
		PollInterval: pollInterval,
		Clock:        clock,
	}
}

// State returns the current state.
func (d *Debouncer) State() State {
	return d.state
}

// Next blocks until a batch is complete and returns it.
func (d *Debouncer) Next(ctx context.Context, events <-chan Event) (Batch, error) {
	d.reset()

	for {
		switch d.state {
		case StateIdle:
			select {
			case <-ctx.Done():
				return Batch{}, ctx.Err()
			case ev, ok := <-events:
				if !ok {
					return Batch{}, ErrSourceClosed
				}
				if d.add(ev) {
					d.opened = d.Clock.Now()
					d.state = StateCollecting
				}
			}

		case StateCollecting:
			if d.Clock.Now().Sub(d.opened) >= d.Window {
				d.state = StateFlushing
				continue
			}
			select {
			case <-ctx.Done():
				d.reset()
				return Batch{}, ctx.Err()
			case ev, ok := <-events:
				if !ok {
					d.state = StateFlushing
					continue
				}
				d.add(ev)
			default:
				d.Clock.Sleep(d.PollInterval)
			}

		case StateFlushing:
			batch := Batch{
				Paths:  d.paths,
				Opened: d.opened,
				Closed: d.Clock.Now(),
			}
			d.reset()
			return batch, nil
		}
	}
}

// add records the event's path. It reports whether the event was significant.
func (d *Debouncer) add(ev Event) bool {
	path, ok := ev.PathOfInterest()
	if !ok {
		return false
	}
	if _, dup := d.seen[path]; !dup {
		d.seen[path] = struct{}{}
		d.paths = append(d.paths, path)
	}
	return true
}

func (d *Debouncer) reset() {
	d.state = StateIdle
	d.paths = nil
	d.seen = make(map[string]struct{})
	d.opened = time.Time{}
}

package authoring

import (
	"context"
	"sync"
)

// Event names emitted by an embedded report.
type Event string

const (
	EventLoaded   Event = "loaded"
	EventRendered Event = "rendered"
	EventSaved    Event = "saved"
	EventError    Event = "error"
)

// errorBuffer bounds undelivered error events. Further errors are dropped.
const errorBuffer = 16

// Lifecycle turns report events into one-shot futures. loaded, rendered
// and saved each close a channel once; error events queue on a buffered
// channel.
type Lifecycle struct {
	mu      sync.Mutex
	signals map[Event]chan struct{}
	errs    chan error
}

// NewLifecycle returns a lifecycle with no events observed.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		signals: map[Event]chan struct{}{
			EventLoaded:   make(chan struct{}),
			EventRendered: make(chan struct{}),
			EventSaved:    make(chan struct{}),
		},
		errs: make(chan error, errorBuffer),
	}
}

// Fire records a one-shot event. Repeats and unknown events are ignored.
func (l *Lifecycle) Fire(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.signals[ev]
	if !ok {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Fail delivers an error event without blocking.
func (l *Lifecycle) Fail(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

// Done returns the channel closed when ev fires, or nil for events that
// are not one-shot.
func (l *Lifecycle) Done(ev Event) <-chan struct{} {
	return l.signals[ev]
}

// Errors returns the error event queue.
func (l *Lifecycle) Errors() <-chan error {
	return l.errs
}

// Fired reports whether ev has fired.
func (l *Lifecycle) Fired(ev Event) bool {
	ch, ok := l.signals[ev]
	if !ok {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// AwaitLoaded blocks until the report has loaded, an error event arrives,
// or ctx is done.
func (l *Lifecycle) AwaitLoaded(ctx context.Context) error {
	select {
	case <-l.signals[EventLoaded]:
		return nil
	default:
	}
	select {
	case <-l.signals[EventLoaded]:
		return nil
	case err := <-l.errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

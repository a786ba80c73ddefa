package progress

import (
	"fmt"
	"sync"
)

// Sink accepts progress events. Implementations must not block the caller
// for longer than it takes to hand the event over.
type Sink interface {
	Emit(Event)
}

// Channel is an unbounded FIFO from one run to one observer.
// Emit never blocks on a slow reader: events are buffered until the
// observer drains Events. Emit is safe for concurrent producers.
type Channel struct {
	in  chan Event
	out chan Event

	mu     sync.Mutex
	closed bool
}

// NewChannel creates a Channel and starts its forwarding goroutine.
func NewChannel() *Channel {
	c := &Channel{
		in:  make(chan Event),
		out: make(chan Event),
	}
	go c.forward()
	return c
}

// forward moves events from in to out through an unbounded buffer.
func (c *Channel) forward() {
	var pending []Event
	in := c.in
	for in != nil || len(pending) > 0 {
		var out chan Event
		var head Event
		if len(pending) > 0 {
			out = c.out
			head = pending[0]
		}
		select {
		case ev, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, ev)
		case out <- head:
			pending[0] = nil
			pending = pending[1:]
		}
	}
	close(c.out)
}

// Emit queues an event. Events emitted after Close are dropped.
func (c *Channel) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.in <- ev
}

// Events returns the receive side. It is closed after Close once every
// queued event has been delivered.
func (c *Channel) Events() <-chan Event {
	return c.out
}

// Close stops accepting events. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.in)
}

// Logf emits an info LogLine.
func Logf(s Sink, format string, args ...any) {
	emit(s, LogLine{Level: LevelInfo, Text: fmt.Sprintf(format, args...)})
}

// Skipf emits a skip LogLine.
func Skipf(s Sink, format string, args ...any) {
	emit(s, LogLine{Level: LevelSkip, Text: fmt.Sprintf(format, args...)})
}

// Errorf emits an error LogLine.
func Errorf(s Sink, format string, args ...any) {
	emit(s, LogLine{Level: LevelError, Text: fmt.Sprintf(format, args...)})
}

// Inc emits a CountIncrement of n.
func Inc(s Sink, n int) {
	emit(s, CountIncrement{N: n})
}

func emit(s Sink, ev Event) {
	if s == nil {
		return
	}
	s.Emit(ev)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder is a Sink that keeps every event in memory. It is meant for
// tests and for callers that inspect a run after it finished.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit stores the event.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Lines returns the text of recorded log lines at the given level.
func (r *Recorder) Lines(level Level) []string {
	var lines []string
	for _, ev := range r.Events() {
		if l, ok := ev.(LogLine); ok && l.Level == level {
			lines = append(lines, l.Text)
		}
	}
	return lines
}

// Count returns the sum of recorded CountIncrement events.
func (r *Recorder) Count() int {
	total := 0
	for _, ev := range r.Events() {
		if c, ok := ev.(CountIncrement); ok {
			total += c.N
		}
	}
	return total
}

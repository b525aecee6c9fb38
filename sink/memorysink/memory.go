// Package memorysink provides a bounded in-memory event sink. It is the
// reference implementation, suitable for tests and single-process tooling.
package memorysink

import (
	"context"
	"sync"

	"github.com/sessiontap/sessiontap-go/sink"
)

const defaultCapacity = 4096

// Sink stores the most recent events in memory, dropping the oldest once the
// configured capacity is exceeded.
type Sink struct {
	mu       sync.Mutex
	events   []sink.Event
	capacity int
}

// Option configures a Sink.
type Option func(*Sink)

// WithCapacity bounds the number of retained events. Default: 4096.
func WithCapacity(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// New creates an in-memory sink.
func New(opts ...Option) *Sink {
	s := &Sink{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ sink.EventSink = (*Sink)(nil)

// Record appends ev, evicting the oldest event at capacity. It never fails.
func (s *Sink) Record(_ context.Context, ev sink.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.capacity {
		s.events = append(s.events[1:len(s.events):len(s.events)], ev)
		return nil
	}
	s.events = append(s.events, ev)
	return nil
}

// Events returns a snapshot of the retained events in record order.
func (s *Sink) Events() []sink.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sink.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of retained events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Reset discards all retained events.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

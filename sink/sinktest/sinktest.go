// Package sinktest provides a recording EventSink for assertions in tests,
// with injectable failure modes, plus a reusable conformance suite for sink
// implementations.
package sinktest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sessiontap/sessiontap-go/sink"
)

// Recorder is an EventSink that captures every recorded event. The zero
// value is not usable; create one with New.
type Recorder struct {
	mu     sync.Mutex
	events []sink.Event
	err    error
	panicV any
}

// New creates a Recorder.
func New() *Recorder {
	return &Recorder{}
}

var _ sink.EventSink = (*Recorder)(nil)

// Record captures ev, then applies any configured failure mode: a FailWith
// error is returned after capturing (so ordering stays observable), while a
// PanicWith value panics before capturing (the event is lost, as with a
// crashing sink).
func (r *Recorder) Record(_ context.Context, ev sink.Event) error {
	r.mu.Lock()
	if r.panicV != nil {
		v := r.panicV
		r.mu.Unlock()
		panic(v)
	}
	r.events = append(r.events, ev)
	err := r.err
	r.mu.Unlock()
	return err
}

// FailWith makes subsequent Record calls return err after capturing.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// PanicWith makes subsequent Record calls panic with v before capturing.
func (r *Recorder) PanicWith(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panicV = v
}

// Events returns a snapshot of the captured events in record order.
func (r *Recorder) Events() []sink.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sink.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the Kind field of every captured event, in order.
func (r *Recorder) Kinds() []string {
	evs := r.Events()
	kinds := make([]string, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Len returns the number of captured events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// WaitFor blocks until at least n events are captured or timeout elapses,
// reporting whether the threshold was reached.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if r.Len() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// SinkFactory creates a fresh sink instance for conformance testing.
type SinkFactory func(t *testing.T) sink.EventSink

// RunEventSinkTests runs the sink conformance suite against the provided
// factory: every implementation must accept all event kinds and tolerate
// concurrent recording.
func RunEventSinkTests(t *testing.T, factory SinkFactory) {
	t.Run("AcceptsAllKinds", func(t *testing.T) { testAcceptsAllKinds(t, factory) })
	t.Run("ConcurrentRecord", func(t *testing.T) { testConcurrentRecord(t, factory) })
}

func testAcceptsAllKinds(t *testing.T, factory SinkFactory) {
	s := factory(t)
	ctx := context.Background()

	kinds := []string{"data_received", "response_received", "completed", "metrics_collected"}
	for i, kind := range kinds {
		ev := sink.Event{
			ID:        fmt.Sprintf("ev-%d", i),
			Kind:      kind,
			Time:      time.Now(),
			SessionID: "sess-1",
			TaskID:    "task-1",
		}
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%s) failed: %v", kind, err)
		}
	}
}

func testConcurrentRecord(t *testing.T, factory SinkFactory) {
	s := factory(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ev := sink.Event{
					ID:     fmt.Sprintf("w%d-%d", w, i),
					Kind:   "data_received",
					Time:   time.Now(),
					TaskID: fmt.Sprintf("task-%d", w),
				}
				if err := s.Record(ctx, ev); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Record failed: %v", err)
	}
}

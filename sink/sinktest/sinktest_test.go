package sinktest

import (
	"context"
	"errors"
	"testing"

	"github.com/sessiontap/sessiontap-go/sink"
)

func TestConformance(t *testing.T) {
	RunEventSinkTests(t, func(t *testing.T) sink.EventSink {
		return New()
	})
}

func TestFailWithRecordsThenErrors(t *testing.T) {
	r := New()
	sentinel := errors.New("boom")
	r.FailWith(sentinel)

	err := r.Record(context.Background(), sink.Event{ID: "ev-1", Kind: "completed"})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Record err = %v, want sentinel", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want event captured before erroring", r.Len())
	}
}

func TestPanicWithLosesEvent(t *testing.T) {
	r := New()
	r.PanicWith("crash")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
		if r.Len() != 0 {
			t.Fatalf("Len = %d, want event lost on panic", r.Len())
		}
	}()
	_ = r.Record(context.Background(), sink.Event{ID: "ev-1", Kind: "completed"})
}

func TestKindsOrder(t *testing.T) {
	r := New()
	ctx := context.Background()
	_ = r.Record(ctx, sink.Event{ID: "a", Kind: "response_received"})
	_ = r.Record(ctx, sink.Event{ID: "b", Kind: "completed"})

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != "response_received" || kinds[1] != "completed" {
		t.Fatalf("Kinds = %v", kinds)
	}
}

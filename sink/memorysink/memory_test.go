package memorysink

import (
	"context"
	"fmt"
	"testing"

	"github.com/sessiontap/sessiontap-go/sink"
	"github.com/sessiontap/sessiontap-go/sink/sinktest"
)

func TestConformance(t *testing.T) {
	sinktest.RunEventSinkTests(t, func(t *testing.T) sink.EventSink {
		return New()
	})
}

func TestRetainsRecordOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, sink.Event{ID: fmt.Sprintf("ev-%d", i), Kind: "completed"}); err != nil {
			t.Fatal(err)
		}
	}

	evs := s.Events()
	if len(evs) != 5 {
		t.Fatalf("len = %d, want 5", len(evs))
	}
	for i, ev := range evs {
		if want := fmt.Sprintf("ev-%d", i); ev.ID != want {
			t.Fatalf("events[%d].ID = %q, want %q", i, ev.ID, want)
		}
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := New(WithCapacity(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, sink.Event{ID: fmt.Sprintf("ev-%d", i), Kind: "data_received"})
	}

	evs := s.Events()
	if len(evs) != 3 {
		t.Fatalf("len = %d, want capacity 3", len(evs))
	}
	if evs[0].ID != "ev-2" || evs[2].ID != "ev-4" {
		t.Fatalf("retained %q..%q, want ev-2..ev-4", evs[0].ID, evs[2].ID)
	}
}

func TestReset(t *testing.T) {
	s := New()
	_ = s.Record(context.Background(), sink.Event{ID: "ev", Kind: "completed"})
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len after Reset = %d", s.Len())
	}
}

package sessiontap

import (
	"context"
	"net/http"
	"testing"

	"github.com/sessiontap/sessiontap-go/sink/sinktest"
)

func TestAutomaticInterceptionWrapsNewSessions(t *testing.T) {
	rec := sinktest.New()
	EnableAutomaticInterception(rec)
	defer DisableAutomaticInterception()

	srv := newTestServer(t, "abc")
	inner := &fullDelegate{disp: DispositionAllow}
	s := NewSession(nil, inner)

	f, ok := s.Delegate().(*Forwarder)
	if !ok {
		t.Fatalf("session delegate = %T, want *Forwarder", s.Delegate())
	}
	for _, k := range allKinds() {
		if !f.RespondsTo(k) {
			t.Fatalf("intercepting session must advertise %s", k)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := s.StartTask(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if rec.Len() < 4 {
		t.Fatalf("sink recorded %d events, want full lifecycle", rec.Len())
	}
	if len(inner.errs) != 1 || inner.errs[0] != nil {
		t.Fatalf("inner delegate completion = %v, want exactly one nil", inner.errs)
	}
}

func TestEnableAutomaticInterceptionIsIdempotent(t *testing.T) {
	first := sinktest.New()
	second := sinktest.New()
	EnableAutomaticInterception(first)
	EnableAutomaticInterception(second) // no effect
	defer DisableAutomaticInterception()

	srv := newTestServer(t, "abc")
	s := NewSession(nil, nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := s.StartTask(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if first.Len() == 0 {
		t.Fatal("first sink must keep receiving events")
	}
	if second.Len() != 0 {
		t.Fatalf("second enable must be a no-op, sink saw %d events", second.Len())
	}
}

func TestDisableRestoresPlainConstruction(t *testing.T) {
	rec := sinktest.New()
	EnableAutomaticInterception(rec)
	DisableAutomaticInterception()

	inner := &fullDelegate{}
	s := NewSession(nil, inner)
	if s.Delegate() != any(inner) {
		t.Fatalf("session delegate = %T, want the original delegate", s.Delegate())
	}
}

func TestInterceptionWithNilDelegateObservesOnly(t *testing.T) {
	rec := sinktest.New()
	EnableAutomaticInterception(rec)
	defer DisableAutomaticInterception()

	srv := newTestServer(t, "observed")
	s := NewSession(nil, nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := s.StartTask(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	kinds := rec.Kinds()
	if len(kinds) < 4 {
		t.Fatalf("sink kinds = %v, want full lifecycle despite absent delegate", kinds)
	}
	if kinds[0] != "response_received" {
		t.Fatalf("first kind = %q, want response_received (default allow resolved)", kinds[0])
	}
}

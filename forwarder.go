package sessiontap

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sessiontap/sessiontap-go/sink"
)

// Forwarder is the interception core. It implements every delegate interface;
// for each event it records a sink.Event first, then forwards to the wrapped
// delegate iff the delegate implements that event kind. Response events with
// no implementing delegate resolve to DispositionAllow; other kinds are
// simply not forwarded.
//
// A Forwarder holds only immutable construction-time references plus an
// atomically-read delegate pointer, so it is safe under concurrent invocation
// from independent tasks and never blocks.
type Forwarder struct {
	events   sink.EventSink
	log      *slog.Logger
	observed CapabilitySet

	// delegate is non-owning. A nil load means the wrapped delegate is
	// absent; Detach makes it absent permanently.
	delegate atomic.Pointer[delegateBox]
}

type delegateBox struct{ d any }

// ForwarderOption configures a Forwarder at construction.
type ForwarderOption func(*Forwarder)

// WithObservedEvents restricts which event kinds the forwarder records.
// Kinds outside the set pass through without a sink record. Default:
// AllEvents.
func WithObservedEvents(set CapabilitySet) ForwarderOption {
	return func(f *Forwarder) { f.observed = set }
}

// WithForwarderLogger sets the logger used for sink-failure and diagnostic
// reporting. Default: slog.Default().
func WithForwarderLogger(log *slog.Logger) ForwarderOption {
	return func(f *Forwarder) { f.log = log }
}

// NewForwarder wraps delegate, which may be nil for observe-only operation.
// The delegate reference is non-owning: the caller controls its lifetime and
// may release it at any time via Detach.
func NewForwarder(events sink.EventSink, delegate any, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		events:   events,
		log:      slog.Default(),
		observed: AllEvents,
	}
	for _, opt := range opts {
		opt(f)
	}
	if delegate != nil {
		f.delegate.Store(&delegateBox{d: delegate})
	}
	return f
}

// Detach releases the wrapped delegate reference. The transition is
// one-directional: once absent the delegate never becomes present again, and
// subsequent events follow the no-delegate policy.
func (f *Forwarder) Detach() {
	f.delegate.Store(nil)
}

// ObservedEvents returns the forwarder's own intercepted capability set.
func (f *Forwarder) ObservedEvents() CapabilitySet {
	return f.observed
}

func (f *Forwarder) wrapped() any {
	if box := f.delegate.Load(); box != nil {
		return box.d
	}
	return nil
}

// RespondsTo reports whether this composite handles kind: true when the
// forwarder itself observes it, or when the wrapped delegate implements it.
// The answer never diverges from actual forwarding behavior.
func (f *Forwarder) RespondsTo(kind EventKind) bool {
	ok := f.observed.Contains(kind) || delegateRespondsTo(f.wrapped(), kind)
	if traceCapabilities() {
		f.log.Debug("capability probe",
			slog.String("kind", kind.String()),
			slog.Bool("responds", ok))
	}
	return ok
}

// ForwardingTarget names the object a dispatcher may call directly for kind.
// Observed kinds have no direct target: the forwarder itself must run.
// Unobserved kinds pass straight through to the wrapped delegate, or to
// nobody when it is absent.
func (f *Forwarder) ForwardingTarget(kind EventKind) any {
	if f.observed.Contains(kind) {
		return nil
	}
	return f.wrapped()
}

var (
	_ DataDelegate             = (*Forwarder)(nil)
	_ ResponseDelegate         = (*Forwarder)(nil)
	_ CompletionDelegate       = (*Forwarder)(nil)
	_ MetricsDelegate          = (*Forwarder)(nil)
	_ CapabilityReporter       = (*Forwarder)(nil)
	_ ForwardingTargetProvider = (*Forwarder)(nil)
)

// TaskDataReceived records the chunk event, then forwards it when the
// wrapped delegate observes data.
func (f *Forwarder) TaskDataReceived(task *Task, chunk []byte) {
	if f.observed.Contains(KindDataReceived) {
		ev := f.newEvent(KindDataReceived, task)
		ev.ByteCount = len(chunk)
		f.notify(task.Context(), ev)
	}
	if d, ok := f.wrapped().(DataDelegate); ok {
		d.TaskDataReceived(task, chunk)
	}
}

// TaskResponseReceived records the response event, then resolves its
// disposition: the wrapped delegate's answer passes through unmodified, and
// DispositionAllow is supplied only when no wrapped delegate implements
// ResponseDelegate. The return-value contract makes exactly-once resolution
// structural.
func (f *Forwarder) TaskResponseReceived(task *Task, resp *http.Response) Disposition {
	if f.observed.Contains(KindResponseReceived) {
		ev := f.newEvent(KindResponseReceived, task)
		if resp != nil {
			ev.StatusCode = resp.StatusCode
			ev.MediaType = sink.NormalizeMediaType(resp.Header.Get("Content-Type"))
		}
		f.notify(task.Context(), ev)
	}
	if d, ok := f.wrapped().(ResponseDelegate); ok {
		return d.TaskResponseReceived(task, resp)
	}
	return DispositionAllow
}

// TaskCompleted records the completion event, carrying err verbatim, then
// forwards it when the wrapped delegate observes completion.
func (f *Forwarder) TaskCompleted(task *Task, err error) {
	if f.observed.Contains(KindCompleted) {
		ev := f.newEvent(KindCompleted, task)
		if err != nil {
			ev.Error = err.Error()
		}
		f.notify(task.Context(), ev)
	}
	if d, ok := f.wrapped().(CompletionDelegate); ok {
		d.TaskCompleted(task, err)
	}
}

// TaskMetricsCollected records the metrics event, then forwards it when the
// wrapped delegate observes metrics.
func (f *Forwarder) TaskMetricsCollected(task *Task, metrics *TaskMetrics) {
	if f.observed.Contains(KindMetricsCollected) {
		ev := f.newEvent(KindMetricsCollected, task)
		if metrics != nil {
			ev.Metrics = &sink.Metrics{
				StartedAt:        metrics.StartedAt,
				FirstByteAt:      metrics.FirstByteAt,
				FinishedAt:       metrics.FinishedAt,
				DurationMillis:   metrics.Duration().Milliseconds(),
				BytesReceived:    metrics.BytesReceived,
				ConnectionReused: metrics.ConnectionReused,
			}
		}
		f.notify(task.Context(), ev)
	}
	if d, ok := f.wrapped().(MetricsDelegate); ok {
		d.TaskMetricsCollected(task, metrics)
	}
}

func (f *Forwarder) newEvent(kind EventKind, task *Task) sink.Event {
	ev := sink.Event{
		ID:   uuid.NewString(),
		Kind: kind.String(),
		Time: time.Now(),
	}
	if task != nil {
		ev.SessionID = task.SessionID()
		ev.TaskID = task.ID()
		if req := task.Request(); req != nil {
			ev.Method = req.Method
			if req.URL != nil {
				ev.URL = req.URL.String()
			}
		}
	}
	return ev
}

// notify records ev, isolating sink failures from forwarding: an error or
// panic from the sink is logged and otherwise ignored.
func (f *Forwarder) notify(ctx context.Context, ev sink.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			f.log.WarnContext(ctx, "event sink panicked",
				slog.String("kind", ev.Kind),
				slog.Any("panic", r))
		}
	}()
	if err := f.events.Record(ctx, ev); err != nil {
		f.log.WarnContext(ctx, "event sink failed",
			slog.String("kind", ev.Kind),
			slog.String("err", err.Error()))
	}
}

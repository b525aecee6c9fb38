package sessiontap

import "net/http"

// Delegates implement a subset of the narrow interfaces below, mirroring the
// optional callbacks of a session delegate. A delegate that does not
// implement an interface simply never observes that event kind.

// DataDelegate observes response body chunks. The chunk is owned by the
// callee; the session never reuses it after dispatch.
type DataDelegate interface {
	TaskDataReceived(task *Task, chunk []byte)
}

// ResponseDelegate observes response headers and decides how the session
// should proceed. The returned Disposition is the single resolution for the
// event; there is no separate completion to invoke.
type ResponseDelegate interface {
	TaskResponseReceived(task *Task, resp *http.Response) Disposition
}

// CompletionDelegate observes task completion. err is nil on success and is
// delivered exactly as produced by the transport, never synthesized or
// swallowed.
type CompletionDelegate interface {
	TaskCompleted(task *Task, err error)
}

// MetricsDelegate observes the per-task metrics record, delivered once,
// before completion.
type MetricsDelegate interface {
	TaskMetricsCollected(task *Task, metrics *TaskMetrics)
}

// CapabilityReporter is implemented by composite delegates (such as
// *Forwarder) whose capability surface is broader than the interfaces they
// statically implement. Callers that probe before dispatch must prefer this
// over type assertions when available; the answer is required to match the
// delegate's actual forwarding behavior.
type CapabilityReporter interface {
	RespondsTo(kind EventKind) bool
}

// ForwardingTargetProvider exposes the fast-path dispatch contract: for event
// kinds the composite does not itself need to intercept, it names the object
// that should be called directly instead. A nil target means either the
// composite itself must run (the kind is intercepted) or nobody handles the
// kind at all; callers disambiguate via RespondsTo.
type ForwardingTargetProvider interface {
	ForwardingTarget(kind EventKind) any
}

// DelegateCapabilities derives the set of event kinds the delegate
// implements. A CapabilityReporter is consulted in preference to static
// interface checks. A nil delegate has no capabilities.
func DelegateCapabilities(delegate any) CapabilitySet {
	if delegate == nil {
		return 0
	}
	if r, ok := delegate.(CapabilityReporter); ok {
		var s CapabilitySet
		for k := EventKind(0); k < numEventKinds; k++ {
			if r.RespondsTo(k) {
				s |= 1 << k
			}
		}
		return s
	}
	return staticCapabilities(delegate)
}

// delegateRespondsTo reports whether delegate handles kind, preferring a
// CapabilityReporter over static interface checks.
func delegateRespondsTo(delegate any, kind EventKind) bool {
	if delegate == nil {
		return false
	}
	if r, ok := delegate.(CapabilityReporter); ok {
		return r.RespondsTo(kind)
	}
	return staticCapabilities(delegate).Contains(kind)
}

// staticCapabilities probes the delegate's implemented interfaces only,
// ignoring any CapabilityReporter it may expose.
func staticCapabilities(delegate any) CapabilitySet {
	if delegate == nil {
		return 0
	}
	var s CapabilitySet
	if _, ok := delegate.(DataDelegate); ok {
		s |= 1 << KindDataReceived
	}
	if _, ok := delegate.(ResponseDelegate); ok {
		s |= 1 << KindResponseReceived
	}
	if _, ok := delegate.(CompletionDelegate); ok {
		s |= 1 << KindCompleted
	}
	if _, ok := delegate.(MetricsDelegate); ok {
		s |= 1 << KindMetricsCollected
	}
	return s
}

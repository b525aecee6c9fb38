// Package sessiontap provides transparent interception of URL-session task
// lifecycles. A Forwarder wraps a caller-supplied delegate, records every
// lifecycle event to a pluggable sink, and forwards each event to the wrapped
// delegate with exact behavioral equivalence: the delegate sees the same
// callbacks, with the same arguments, the same number of times, as it would
// with no forwarder present.
//
// Layers & Roles
//
//	Session / Task  -> runs HTTP work and emits the delegate callback stream
//	Forwarder       -> observes every event, then forwards per capability
//	sink.EventSink  -> receives the observed event records (memory, slog, file, redis)
//
// # Delegate capabilities
//
// Delegates implement only the event kinds they care about by satisfying the
// narrow interfaces DataDelegate, ResponseDelegate, CompletionDelegate and
// MetricsDelegate. Absence of a method simply means the delegate did not
// elect to observe that event kind. The Forwarder combines its own observed
// CapabilitySet with the wrapped delegate's implemented set and answers
// capability probes through RespondsTo and ForwardingTarget; the answers are
// guaranteed to match its actual forwarding behavior.
//
// # Dispositions
//
// ResponseReceived events require a disposition. ResponseDelegate returns the
// Disposition directly, so every code path resolves exactly once: the
// Forwarder passes the wrapped delegate's answer through unmodified, or
// supplies DispositionAllow when the wrapped delegate does not implement
// ResponseDelegate.
//
// # Automatic interception
//
// EnableAutomaticInterception installs a process-wide hook so every
// subsequently constructed Session wraps its delegate in a Forwarder sharing
// one sink. Enabling is idempotent; DisableAutomaticInterception restores
// plain construction.
package sessiontap

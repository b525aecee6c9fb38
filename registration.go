package sessiontap

import (
	"log/slog"
	"sync"

	"github.com/joeshaw/envdecode"
	"github.com/sessiontap/sessiontap-go/sink"
)

// Automatic interception is process-wide state consulted by NewSession. It is
// an explicit construction hook, not symbol patching: sessions created while
// it is enabled wrap their delegate in a Forwarder sharing the captured sink.
var autoIntercept struct {
	mu      sync.Mutex
	events  sink.EventSink
	enabled bool
}

// EnableAutomaticInterception turns on process-wide interception. Every
// Session constructed afterwards delivers its events through a Forwarder that
// records to events before forwarding to the caller's delegate.
//
// Enabling is idempotent: the first call captures the sink and subsequent
// calls have no effect until DisableAutomaticInterception.
func EnableAutomaticInterception(events sink.EventSink) {
	autoIntercept.mu.Lock()
	defer autoIntercept.mu.Unlock()
	if autoIntercept.enabled {
		return
	}
	autoIntercept.events = events
	autoIntercept.enabled = true
}

// DisableAutomaticInterception restores plain session construction. Sessions
// created while interception was enabled keep their Forwarder; only new
// construction is affected.
func DisableAutomaticInterception() {
	autoIntercept.mu.Lock()
	defer autoIntercept.mu.Unlock()
	autoIntercept.events = nil
	autoIntercept.enabled = false
}

func wrapIfIntercepted(delegate any, log *slog.Logger) any {
	autoIntercept.mu.Lock()
	events := autoIntercept.events
	enabled := autoIntercept.enabled
	autoIntercept.mu.Unlock()
	if !enabled {
		return delegate
	}
	return NewForwarder(events, delegate, WithForwarderLogger(log))
}

// diagnosticsConfig gates verbose capability-probe tracing. Loaded once from
// the environment.
type diagnosticsConfig struct {
	// TraceCapabilities emits a debug log per RespondsTo probe.
	// ENV: SESSIONTAP_TRACE_CAPABILITIES
	TraceCapabilities bool `env:"SESSIONTAP_TRACE_CAPABILITIES,default=false"`
}

var (
	diagOnce sync.Once
	diag     diagnosticsConfig
)

func traceCapabilities() bool {
	diagOnce.Do(func() {
		// Defaults come from struct tags; decode errors leave them in place.
		_ = envdecode.Decode(&diag)
	})
	return diag.TraceCapabilities
}

package sessiontap

import (
	"strings"
	"time"
)

// EventKind identifies one observable task lifecycle event.
type EventKind uint8

const (
	// KindDataReceived is emitted for each chunk of response body read.
	KindDataReceived EventKind = iota
	// KindResponseReceived is emitted when response headers arrive. It is the
	// only disposition-bearing kind: a Disposition must be returned before
	// the session proceeds.
	KindResponseReceived
	// KindCompleted is emitted exactly once per task, carrying the task's
	// terminal error or nil on success.
	KindCompleted
	// KindMetricsCollected is emitted once per task, before completion, with
	// the collected TaskMetrics.
	KindMetricsCollected

	numEventKinds = 4
)

func (k EventKind) String() string {
	switch k {
	case KindDataReceived:
		return "data_received"
	case KindResponseReceived:
		return "response_received"
	case KindCompleted:
		return "completed"
	case KindMetricsCollected:
		return "metrics_collected"
	}
	return "unknown"
}

// CapabilitySet is an immutable set of event kinds. The zero value is the
// empty set.
type CapabilitySet uint8

// NewCapabilitySet builds a set from the given kinds.
func NewCapabilitySet(kinds ...EventKind) CapabilitySet {
	var s CapabilitySet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// AllEvents contains every defined event kind.
var AllEvents = NewCapabilitySet(KindDataReceived, KindResponseReceived, KindCompleted, KindMetricsCollected)

// Contains reports whether k is in the set.
func (s CapabilitySet) Contains(k EventKind) bool {
	return s&(1<<k) != 0
}

// Union returns the set containing every kind in s or o.
func (s CapabilitySet) Union(o CapabilitySet) CapabilitySet {
	return s | o
}

// Kinds returns the members of the set in declaration order.
func (s CapabilitySet) Kinds() []EventKind {
	var kinds []EventKind
	for k := EventKind(0); k < numEventKinds; k++ {
		if s.Contains(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, numEventKinds)
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Disposition is the decision a ResponseDelegate returns for a received
// response. The documented default, applied whenever no delegate implements
// ResponseDelegate, is DispositionAllow.
type Disposition int

const (
	// DispositionAllow lets the session proceed to consume the response body.
	DispositionAllow Disposition = iota
	// DispositionCancel abandons the response; the task completes with
	// ErrCancelled and no body data is delivered.
	DispositionCancel
)

func (d Disposition) String() string {
	switch d {
	case DispositionAllow:
		return "allow"
	case DispositionCancel:
		return "cancel"
	}
	return "unknown"
}

// TaskMetrics is the per-task timing and volume record delivered through
// KindMetricsCollected. Zero time fields mean the corresponding phase was not
// observed (e.g. ConnectDoneAt on a reused connection).
type TaskMetrics struct {
	StartedAt      time.Time
	ConnectDoneAt  time.Time
	WroteRequestAt time.Time
	FirstByteAt    time.Time
	FinishedAt     time.Time

	BytesReceived    int64
	ConnectionReused bool
}

// Duration returns the wall-clock span of the task, or zero if the task has
// not finished.
func (m *TaskMetrics) Duration() time.Duration {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// Package sink defines the event sink interface the forwarding layer records
// through, along with the flat Event record it emits. Implementations live in
// the subpackages memorysink, slogsink, filesink and redissink; sinktest
// provides a recording sink and a reusable conformance suite.
package sink

import (
	"context"
	"time"

	"github.com/elnormous/contenttype"
)

// EventSink receives one record per observed lifecycle event.
//
// Implementations must be safe for concurrent use and must not block: events
// are recorded on the task's own goroutine and a slow sink would stall the
// session. Errors are advisory; the forwarding layer logs and continues, so a
// failing sink never affects delegate delivery.
type EventSink interface {
	Record(ctx context.Context, ev Event) error
}

// Event is the serialized form of one observed lifecycle event. Fields not
// meaningful for a given kind are left zero and omitted from JSON.
type Event struct {
	// ID uniquely identifies this record.
	ID string `json:"id"`
	// Kind is the EventKind name: data_received, response_received,
	// completed or metrics_collected.
	Kind string `json:"kind"`
	// Time is when the forwarding layer observed the event.
	Time time.Time `json:"time"`

	SessionID string `json:"session_id,omitempty"`
	TaskID    string `json:"task_id,omitempty"`

	// Method and URL describe the task's request.
	Method string `json:"method,omitempty"`
	URL    string `json:"url,omitempty"`

	// StatusCode and MediaType are set on response_received events.
	// MediaType is the normalized media type, stripped of parameters.
	StatusCode int    `json:"status_code,omitempty"`
	MediaType  string `json:"media_type,omitempty"`

	// ByteCount is the chunk length on data_received events.
	ByteCount int `json:"byte_count,omitempty"`

	// Error carries the task's terminal error text on completed events.
	Error string `json:"error,omitempty"`

	// Metrics is set on metrics_collected events.
	Metrics *Metrics `json:"metrics,omitempty"`
}

// Metrics is the serialized per-task metrics record.
type Metrics struct {
	StartedAt        time.Time `json:"started_at"`
	FirstByteAt      time.Time `json:"first_byte_at,omitempty"`
	FinishedAt       time.Time `json:"finished_at"`
	DurationMillis   int64     `json:"duration_ms"`
	BytesReceived    int64     `json:"bytes_received"`
	ConnectionReused bool      `json:"connection_reused,omitempty"`
}

// NormalizeMediaType parses a Content-Type header value and returns the bare
// type/subtype pair, or "" when the value is empty or unparseable.
func NormalizeMediaType(value string) string {
	if value == "" {
		return ""
	}
	mt := contenttype.NewMediaType(value)
	if mt.Type == "" {
		return ""
	}
	return mt.Type + "/" + mt.Subtype
}

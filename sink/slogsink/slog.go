// Package slogsink emits each observed event as a structured log/slog
// record.
package slogsink

import (
	"context"
	"log/slog"

	"github.com/sessiontap/sessiontap-go/sink"
)

// Sink logs one record per event at a fixed level.
type Sink struct {
	log   *slog.Logger
	level slog.Level
}

// Option configures a Sink.
type Option func(*Sink)

// WithLevel sets the level events are logged at. Default: slog.LevelInfo.
func WithLevel(level slog.Level) Option {
	return func(s *Sink) { s.level = level }
}

// New creates a sink logging through log. A nil log uses slog.Default().
func New(log *slog.Logger, opts ...Option) *Sink {
	if log == nil {
		log = slog.Default()
	}
	s := &Sink{log: log, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ sink.EventSink = (*Sink)(nil)

// Record logs ev. It never fails.
func (s *Sink) Record(ctx context.Context, ev sink.Event) error {
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("event_id", ev.ID),
		slog.String("kind", ev.Kind),
		slog.String("session_id", ev.SessionID),
		slog.String("task_id", ev.TaskID),
	)
	if ev.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", ev.StatusCode))
	}
	if ev.MediaType != "" {
		attrs = append(attrs, slog.String("media_type", ev.MediaType))
	}
	if ev.ByteCount != 0 {
		attrs = append(attrs, slog.Int("bytes", ev.ByteCount))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("err", ev.Error))
	}
	if ev.Metrics != nil {
		attrs = append(attrs,
			slog.Int64("duration_ms", ev.Metrics.DurationMillis),
			slog.Int64("bytes_received", ev.Metrics.BytesReceived))
	}
	s.log.LogAttrs(ctx, s.level, "session event", attrs...)
	return nil
}

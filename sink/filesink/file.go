// Package filesink appends observed events to a JSONL file and cooperates
// with external log rotation: when the file is renamed or removed out from
// under it, the sink reopens the original path.
package filesink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sessiontap/sessiontap-go/sink"
)

// Sink writes one JSON object per line.
type Sink struct {
	path string
	log  *slog.Logger

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  sync.Once
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger for watcher diagnostics. Default:
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Sink) { s.log = log }
}

// New opens (or creates) the JSONL file at path for appending and starts
// watching it for rotation.
func New(path string, opts ...Option) (*Sink, error) {
	s := &Sink{
		path: path,
		log:  slog.Default(),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		// Rotation detection is best-effort; the sink still works without it.
		s.log.Debug("fsnotify unavailable", slog.String("err", err.Error()))
		return s, nil
	}
	if err := w.Add(path); err != nil {
		s.log.Debug("watch add failed", slog.String("err", err.Error()))
		_ = w.Close()
		return s, nil
	}
	s.watcher = w
	go s.watch()
	return s, nil
}

func (s *Sink) open() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open event log %s: %w", s.path, err)
	}
	s.mu.Lock()
	if s.f != nil {
		_ = s.f.Close()
	}
	s.f = f
	s.enc = json.NewEncoder(f)
	s.mu.Unlock()
	return nil
}

func (s *Sink) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if err := s.open(); err != nil {
					s.log.Debug("reopen after rotation failed", slog.String("err", err.Error()))
					continue
				}
				if err := s.watcher.Add(s.path); err != nil {
					s.log.Debug("rewatch failed", slog.String("err", err.Error()))
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Debug("watcher error", slog.String("err", err.Error()))
		}
	}
}

var _ sink.EventSink = (*Sink)(nil)

// Record appends ev as one JSON line.
func (s *Sink) Record(_ context.Context, ev sink.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("filesink: closed")
	}
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Close stops the rotation watcher and closes the file.
func (s *Sink) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		if s.watcher != nil {
			// Best-effort watcher close; no actionable error handling path.
			_ = s.watcher.Close()
		}
		s.mu.Lock()
		if s.f != nil {
			err = s.f.Close()
			s.f = nil
			s.enc = nil
		}
		s.mu.Unlock()
	})
	return err
}

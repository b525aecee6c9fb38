package sessiontap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sessiontap/sessiontap-go/internal/logctx"
)

// ErrCancelled is the terminal error of a task whose response was refused by
// a DispositionCancel.
var ErrCancelled = errors.New("sessiontap: response cancelled by delegate")

const defaultChunkSize = 32 * 1024

// Config configures a Session. The zero value is usable.
type Config struct {
	// Transport executes the session's requests. Default:
	// http.DefaultTransport.
	Transport http.RoundTripper

	// ChunkSize is the read-buffer size for body delivery; each read becomes
	// one DataReceived event. Default: 32 KiB.
	ChunkSize int

	// Logger receives session diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Session owns a set of network tasks and delivers their lifecycle events to
// its delegate. The delegate reference is fixed at construction, matching the
// configure-once lifetime of the platform sessions this package models.
type Session struct {
	id        string
	transport http.RoundTripper
	chunkSize int
	log       *slog.Logger
	delegate  any

	wg sync.WaitGroup
}

// NewSession creates a session delivering events to delegate, which may
// implement any subset of the delegate interfaces and may be nil. When
// automatic interception is enabled the delegate is transparently wrapped in
// a Forwarder sharing the process-wide sink.
func NewSession(cfg *Config, delegate any) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Session{
		id:        uuid.NewString(),
		transport: cfg.Transport,
		chunkSize: cfg.ChunkSize,
		log:       cfg.Logger,
	}
	if s.transport == nil {
		s.transport = http.DefaultTransport
	}
	if s.chunkSize <= 0 {
		s.chunkSize = defaultChunkSize
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.delegate = wrapIfIntercepted(delegate, s.log)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Delegate returns the session's effective delegate. With automatic
// interception enabled this is the installed *Forwarder rather than the
// delegate passed to NewSession.
func (s *Session) Delegate() any { return s.delegate }

// StartTask begins executing req on its own goroutine and returns the task
// handle immediately. Lifecycle events are delivered to the session delegate
// in order: ResponseReceived, DataReceived per chunk, MetricsCollected,
// Completed. Cancellation is the caller's concern via ctx; it surfaces as a
// transport error through Completed.
func (s *Session) StartTask(ctx context.Context, req *http.Request) (*Task, error) {
	if req == nil {
		return nil, fmt.Errorf("sessiontap: nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t := &Task{
		id:      uuid.NewString(),
		session: s,
		req:     req,
	}
	t.ctx = logctx.WithTaskData(ctx, &logctx.TaskData{
		TaskID: t.id,
		Method: req.Method,
		URL:    req.URL.String(),
	})
	t.ctx = logctx.WithSessionData(t.ctx, &logctx.SessionData{SessionID: s.id})

	s.wg.Add(1)
	go t.run()
	return t, nil
}

// Wait blocks until every started task has completed.
func (s *Session) Wait() { s.wg.Wait() }

// respondsTo asks the session delegate whether it handles kind, preferring
// its CapabilityReporter when exposed.
func (s *Session) respondsTo(kind EventKind) bool {
	return delegateRespondsTo(s.delegate, kind)
}

// target resolves who should receive an event of the given kind: a direct
// forwarding target when the delegate short-circuits dispatch, the delegate
// itself when it responds, or nobody.
func (s *Session) target(kind EventKind) any {
	if p, ok := s.delegate.(ForwardingTargetProvider); ok {
		if t := p.ForwardingTarget(kind); t != nil {
			return t
		}
	}
	if s.respondsTo(kind) {
		return s.delegate
	}
	return nil
}

func (s *Session) dispatchData(t *Task, chunk []byte) {
	if d, ok := s.target(KindDataReceived).(DataDelegate); ok {
		d.TaskDataReceived(t, chunk)
	}
}

func (s *Session) dispatchResponse(t *Task, resp *http.Response) Disposition {
	if d, ok := s.target(KindResponseReceived).(ResponseDelegate); ok {
		return d.TaskResponseReceived(t, resp)
	}
	// Nobody handles responses: the session itself applies the default.
	return DispositionAllow
}

func (s *Session) dispatchMetrics(t *Task, m *TaskMetrics) {
	if d, ok := s.target(KindMetricsCollected).(MetricsDelegate); ok {
		d.TaskMetricsCollected(t, m)
	}
}

func (s *Session) dispatchCompleted(t *Task, err error) {
	if d, ok := s.target(KindCompleted).(CompletionDelegate); ok {
		d.TaskCompleted(t, err)
	}
}

// Task is one unit of network work within a Session.
type Task struct {
	id      string
	session *Session
	req     *http.Request
	ctx     context.Context

	metrics TaskMetrics
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// SessionID returns the owning session's identifier, or "" for a detached
// task.
func (t *Task) SessionID() string {
	if t.session == nil {
		return ""
	}
	return t.session.id
}

// Request returns the request the task executes.
func (t *Task) Request() *http.Request { return t.req }

// Context returns the task's context.
func (t *Task) Context() context.Context {
	if t == nil || t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

func (t *Task) run() {
	s := t.session
	defer s.wg.Done()

	m := &t.metrics
	m.StartedAt = time.Now()

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			m.ConnectDoneAt = time.Now()
			m.ConnectionReused = info.Reused
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			m.WroteRequestAt = time.Now()
		},
		GotFirstResponseByte: func() {
			m.FirstByteAt = time.Now()
		},
	}
	req := t.req.WithContext(httptrace.WithClientTrace(t.Context(), trace))

	resp, err := s.transport.RoundTrip(req)
	if err != nil {
		t.finish(err)
		return
	}

	if disp := s.dispatchResponse(t, resp); disp == DispositionCancel {
		if cerr := resp.Body.Close(); cerr != nil {
			s.log.DebugContext(t.Context(), "body close after cancel",
				slog.String("err", cerr.Error()))
		}
		t.finish(ErrCancelled)
		return
	}

	buf := make([]byte, s.chunkSize)
	var readErr error
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			m.BytesReceived += int64(n)
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.dispatchData(t, chunk)
		}
		if rerr != nil {
			if rerr != io.EOF {
				readErr = rerr
			}
			break
		}
	}
	if cerr := resp.Body.Close(); cerr != nil && readErr == nil {
		readErr = cerr
	}
	t.finish(readErr)
}

// finish delivers the terminal pair of events: metrics, then completion with
// err exactly as produced (nil on success).
func (t *Task) finish(err error) {
	t.metrics.FinishedAt = time.Now()
	s := t.session
	s.dispatchMetrics(t, &t.metrics)
	s.dispatchCompleted(t, err)
}

// Package redissink publishes observed events to a Redis Stream for
// horizontal fan-out and durable collection.
package redissink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/sessiontap/sessiontap-go/sink"
)

// Config for the Redis-backed sink. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Stream is the Redis Stream key events are appended to.
	// ENV: SESSIONTAP_STREAM
	Stream string `env:"SESSIONTAP_STREAM,default=sessiontap:events"`
	// MaxLen caps the stream via approximate trimming (0 = unbounded).
	// ENV: SESSIONTAP_STREAM_MAXLEN
	MaxLen int64 `env:"SESSIONTAP_STREAM_MAXLEN,default=8192"`
	// BufferSize bounds the in-process queue between Record and the writer
	// goroutine. ENV: SESSIONTAP_BUFFER
	BufferSize int `env:"SESSIONTAP_BUFFER,default=256"`

	// Client overrides RedisAddr with a pre-built client.
	Client *redis.Client

	// Logger receives writer diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Sink appends events to a Redis Stream. Record never blocks: events are
// queued to a background writer and dropped (counted) when the queue is
// full.
type Sink struct {
	client     *redis.Client
	ownsClient bool
	stream     string
	maxLen     int64
	log        *slog.Logger

	mu     sync.RWMutex
	closed bool
	buf    chan sink.Event
	done   chan struct{}

	dropped atomic.Int64
}

// New creates a Redis sink, verifies connectivity, publishes the event
// schema under <stream>:schema, and starts the background writer.
func New(cfg Config) (*Sink, error) {
	cl := cfg.Client
	ownsClient := cl == nil
	if cl == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl = redis.NewClient(&redis.Options{Addr: addr})
	}
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = "sessiontap:events"
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Sink{
		client:     cl,
		ownsClient: ownsClient,
		stream:     stream,
		maxLen:     cfg.MaxLen,
		log:        log,
		buf:        make(chan sink.Event, bufSize),
		done:       make(chan struct{}),
	}
	s.publishSchema()
	go s.write()
	return s, nil
}

// NewFromEnv builds a Sink using envdecode to populate Config.
func NewFromEnv() (*Sink, error) {
	var cfg Config
	// Defaults come from the struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// publishSchema stores the Event JSON Schema next to the stream so consumers
// can validate records. Best-effort.
func (s *Sink) publishSchema() {
	data, err := json.Marshal(sink.EventSchema())
	if err != nil {
		s.log.Debug("marshal event schema", slog.String("err", err.Error()))
		return
	}
	if err := s.client.Set(context.Background(), s.stream+":schema", data, 0).Err(); err != nil {
		s.log.Debug("publish event schema", slog.String("err", err.Error()))
	}
}

var _ sink.EventSink = (*Sink)(nil)

// Record queues ev for the background writer. It never blocks; when the
// queue is full the event is dropped and counted.
func (s *Sink) Record(_ context.Context, ev sink.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("redissink: closed")
	}
	select {
	case s.buf <- ev:
		return nil
	default:
		s.dropped.Add(1)
		return nil
	}
}

// Dropped returns the number of events discarded due to queue overflow.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

func (s *Sink) write() {
	defer close(s.done)
	for ev := range s.buf {
		data, err := json.Marshal(ev)
		if err != nil {
			s.log.Debug("marshal event", slog.String("err", err.Error()))
			continue
		}
		args := &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]interface{}{"d": data},
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		if err := s.client.XAdd(context.Background(), args).Err(); err != nil {
			s.log.Debug("xadd event", slog.String("err", err.Error()))
		}
	}
}

// Close drains queued events, stops the writer, and closes the client when
// this sink created it.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.buf)
	s.mu.Unlock()

	<-s.done
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

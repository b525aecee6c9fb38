package redissink

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sessiontap/sessiontap-go/sink"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3, // separate DB for sink tests
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func TestPublishesToStream(t *testing.T) {
	client := newTestClient(t)
	stream := fmt.Sprintf("sessiontap:test:%d", time.Now().UnixNano())

	s, err := New(Config{Client: client, Stream: stream, MaxLen: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	ev := sink.Event{
		ID:         "ev-1",
		Kind:       "response_received",
		Time:       time.Now(),
		SessionID:  "sess-1",
		TaskID:     "task-1",
		StatusCode: 200,
	}
	if err := s.Record(ctx, ev); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stream has %d entries, want 1", len(entries))
	}
	raw, ok := entries[0].Values["d"].(string)
	if !ok {
		t.Fatalf("entry values = %v, want field d", entries[0].Values)
	}
	var got sink.Event
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if got.ID != "ev-1" || got.Kind != "response_received" || got.StatusCode != 200 {
		t.Fatalf("round-tripped event = %+v", got)
	}
}

func TestPublishesSchema(t *testing.T) {
	client := newTestClient(t)
	stream := fmt.Sprintf("sessiontap:test:%d", time.Now().UnixNano())

	s, err := New(Config{Client: client, Stream: stream})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	raw, err := client.Get(context.Background(), stream+":schema").Result()
	if err != nil {
		t.Fatalf("schema key: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v, want object", schema["type"])
	}
}

func TestRecordAfterCloseFails(t *testing.T) {
	client := newTestClient(t)

	s, err := New(Config{Client: client, Stream: "sessiontap:test:closed"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), sink.Event{ID: "ev", Kind: "completed"}); err == nil {
		t.Fatal("expected error recording to a closed sink")
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

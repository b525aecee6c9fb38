package sink

import "testing"

func TestEventSchemaDescribesRecord(t *testing.T) {
	s := EventSchema()
	if s == nil {
		t.Fatal("nil schema")
	}
	if s.Type != "object" {
		t.Fatalf("schema type = %q, want object", s.Type)
	}
	if s.Properties == nil {
		t.Fatal("schema has no properties")
	}

	got := map[string]bool{}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		got[el.Key] = true
	}
	for _, field := range []string{"id", "kind", "time", "session_id", "task_id", "status_code", "media_type", "byte_count", "error", "metrics"} {
		if !got[field] {
			t.Errorf("schema missing property %q (have %v)", field, got)
		}
	}
}

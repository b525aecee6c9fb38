package sink

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeMediaType(t *testing.T) {
	cases := map[string]string{
		"application/json":                "application/json",
		"application/json; charset=utf8":  "application/json",
		"text/html;q=0.9":                 "text/html",
		"TEXT/Plain":                      "text/plain",
		"":                                "",
		"not a media type at all \x00":    "",
		"application/vnd.api+json; a=b":   "application/vnd.api+json",
		"text/event-stream;charset=utf-8": "text/event-stream",
	}
	for in, want := range cases {
		if got := NormalizeMediaType(in); got != want {
			t.Errorf("NormalizeMediaType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventOmitsEmptyFields(t *testing.T) {
	ev := Event{
		ID:   "ev-1",
		Kind: "completed",
		Time: time.Now(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"status_code", "media_type", "byte_count", "error", "metrics", "url", "method"} {
		if _, present := m[field]; present {
			t.Errorf("zero field %q serialized as %v", field, m[field])
		}
	}
	for _, field := range []string{"id", "kind", "time"} {
		if _, present := m[field]; !present {
			t.Errorf("required field %q missing", field)
		}
	}
}

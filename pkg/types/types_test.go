package types

import (
	"encoding/json"
	"testing"
)

func TestIncomingRequest_JSON(t *testing.T) {
	req := IncomingRequest{
		ID:     "7",
		Method: "POST",
		Path:   "/api/items",
		Query:  "a=1&b=2",
		Body:   `{"x":1}`,
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(req.JSON()), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"id", "method", "path", "query", "headers", "body"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, req.JSON())
		}
	}
	// Absent headers still serialize as an object.
	if _, ok := decoded["headers"].(map[string]any); !ok {
		t.Errorf("headers should be an object, got %T", decoded["headers"])
	}
	if decoded["body"] != `{"x":1}` {
		t.Errorf("body mismatch: got %v", decoded["body"])
	}
}

func TestSSEOpen_JSON(t *testing.T) {
	open := SSEOpen{ID: "s1", Path: "/sse", Headers: map[string]string{"Host": "127.0.0.1:8080"}}

	want := `{"id":"s1","path":"/sse","headers":{"Host":"127.0.0.1:8080"}}`
	if got := open.JSON(); got != want {
		t.Errorf("JSON mismatch:\n got %s\nwant %s", got, want)
	}

	empty := SSEOpen{ID: "s2", Path: "/sse"}
	if got := empty.JSON(); got != `{"id":"s2","path":"/sse","headers":{}}` {
		t.Errorf("empty headers should serialize as {}: %s", got)
	}
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{99, false},
		{100, true},
		{200, true},
		{418, true},
		{599, true},
		{600, false},
		{-1, false},
	}

	for _, tt := range tests {
		if got := ValidStatus(tt.code); got != tt.want {
			t.Errorf("ValidStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

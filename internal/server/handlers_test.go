package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alkoleft/web-transport-addin/pkg/types"
)

func TestPreflight(t *testing.T) {
	ts := setupTestServer(t, nil, true)

	for _, path := range []string{"/", "/sse", "/message", "/any/path"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		w := httptest.NewRecorder()
		ts.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
		assertCORS(t, w.Header())
	}
}

func TestBrowserPreflight(t *testing.T) {
	ts := setupTestServer(t, nil, true)

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	ts.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assertCORS(t, w.Header())
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
	assert.Equal(t, 0, ts.queue.Len())
}

func TestProbe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeBody = "probe"
	ts := setupTestServer(t, cfg, true)

	w := httptest.NewRecorder()
	ts.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "probe", w.Body.String())
	assertCORS(t, w.Header())
	assert.Equal(t, 0, ts.queue.Len())
}

func TestMessageWithoutHost(t *testing.T) {
	ts := setupTestServer(t, nil, false)

	w := httptest.NewRecorder()
	ts.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Event connection is unavailable", w.Body.String())
	assertCORS(t, w.Header())
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, assert.AnError }

func TestBodyReadFailure(t *testing.T) {
	ts := setupTestServer(t, nil, true)

	req := httptest.NewRequest(http.MethodPost, "/upload", failingBody{})
	w := httptest.NewRecorder()
	ts.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Failed to read request body", w.Body.String())
	assertCORS(t, w.Header())
	assert.Equal(t, 0, ts.queue.Len())
	assert.Equal(t, 0, ts.pending.Len())
}

func TestNormalizeRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "http://example.com:9000/a/b?x=%20y", nil)
	req.Header.Add("X-Multi", "first")
	req.Header.Add("X-Multi", "last")
	req.Header.Set("Authorization", "Bearer t")

	in := normalizeRequest("42", req, []byte("ok\xffbad"))

	assert.Equal(t, "42", in.ID)
	assert.Equal(t, http.MethodPut, in.Method)
	assert.Equal(t, "/a/b", in.Path)
	assert.Equal(t, "x=%20y", in.Query)
	assert.Equal(t, "last", in.Headers["X-Multi"])
	assert.Equal(t, "Bearer t", in.Headers["Authorization"])
	assert.Equal(t, "example.com:9000", in.Headers["Host"])
	assert.Equal(t, "ok\uFFFDbad", in.Body)
}

func TestWriteHostResponse(t *testing.T) {
	srv := &Server{config: DefaultConfig()}

	t.Run("default content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.writeHostResponse(w, types.HTTPResponse{Status: 404, Body: "missing"})
		assert.Equal(t, 404, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "missing", w.Body.String())
	})

	t.Run("host content type wins", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.writeHostResponse(w, types.HTTPResponse{
			Status:  200,
			Headers: map[string]string{"content-type": "text/html", "X-Ok": "1"},
		})
		assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
		assert.Equal(t, "1", w.Header().Get("X-Ok"))
	})

	t.Run("invalid headers skipped", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.writeHostResponse(w, types.HTTPResponse{
			Status: 200,
			Headers: map[string]string{
				"Bad Name": "v",
				"X-Bad":    "line\nbreak",
				"X-Good":   "v",
			},
		})
		assert.Empty(t, w.Header().Values("Bad Name"))
		assert.Empty(t, w.Header().Get("X-Bad"))
		assert.Equal(t, "v", w.Header().Get("X-Good"))
	})
}

func TestRawQueryParam(t *testing.T) {
	tests := []struct {
		query string
		value string
		found bool
	}{
		{"sessionId=abc", "abc", true},
		{"a=1&sessionId=x%2Fy&sessionId=2", "x%2Fy", true},
		{"sessionId=", "", true},
		{"sessionId", "", true},
		{"session=abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		value, found := rawQueryParam(tt.query, "sessionId")
		assert.Equal(t, tt.value, value, tt.query)
		assert.Equal(t, tt.found, found, tt.query)
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://h:1/message?sessionId=5", endpointURL("h:1", "5"))
	assert.Equal(t, "http://127.0.0.1/message?sessionId=5", endpointURL("", "5"))
}

package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, method string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/pages", nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rr := serve(h, http.MethodGet)
	require.Len(t, seen, 26, "ULID")
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	rr = serve(h, http.MethodGet, "X-Request-ID", "edytor-42")
	assert.Equal(t, "edytor-42", seen)
	assert.Equal(t, "edytor-42", rr.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		level  string
	}{
		{"explicit status", http.StatusTeapot, "czajnik", "INFO"},
		{"implicit ok", 0, "OK", "INFO"},
		{"server error", http.StatusBadGateway, "", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := RequestIDMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte(tt.body))
			})))

			serve(h, http.MethodGet, "X-Request-ID", "req-1")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			want := tt.status
			if want == 0 {
				want = http.StatusOK
			}
			assert.Equal(t, "HTTP request", entry["msg"])
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "req-1", entry["request_id"])
			assert.Equal(t, "/pages", entry["path"])
			assert.Equal(t, float64(want), entry["status"])
			assert.Equal(t, float64(len(tt.body)), entry["bytes"])
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RequestIDMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	})))

	var rr *httptest.ResponseRecorder
	require.NotPanics(t, func() { rr = serve(h, http.MethodGet, "X-Request-ID", "req-7") })

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp.Code)
	assert.Contains(t, resp.Message, "req-7")
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { serve(h, http.MethodGet) })
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		method     string
		header     []string
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "allowed origin",
			allowed:    []string{"https://oze.example.com"},
			method:     http.MethodGet,
			header:     []string{"Origin", "https://oze.example.com"},
			wantStatus: http.StatusOK,
			wantOrigin: "https://oze.example.com",
		},
		{
			name:       "other origin",
			allowed:    []string{"https://oze.example.com"},
			method:     http.MethodGet,
			header:     []string{"Origin", "https://evil.example.com"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			header:     []string{"Origin", "http://localhost:5173"},
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:5173",
		},
		{
			name:       "preflight",
			allowed:    []string{"https://oze.example.com"},
			method:     http.MethodOptions,
			header:     []string{"Origin", "https://oze.example.com", "Access-Control-Request-Method", "PUT"},
			wantStatus: http.StatusNoContent,
			wantOrigin: "https://oze.example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(CORSMiddleware(tt.allowed)(next), tt.method, tt.header...)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			if tt.wantOrigin != "" {
				assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
			}
		})
	}
}

func TestCacheMiddleware(t *testing.T) {
	h := CacheMiddleware(5 * time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	assert.Equal(t, "public, max-age=300", serve(h, http.MethodGet).Header().Get("Cache-Control"))
	assert.Equal(t, "public, max-age=300", serve(h, http.MethodHead).Header().Get("Cache-Control"))
	assert.Empty(t, serve(h, http.MethodPost).Header().Get("Cache-Control"))
}

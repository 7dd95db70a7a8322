package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"spendwise/internal/log"
)

func newBufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{
		Component: log.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestMiddleware_LogsAndEchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	tm := NewMiddleware(newBufferLogger(&buf), func(*http.Request) string { return "198.51.100.4" })

	handler := middleware.RequestID(tm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/9", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	out := buf.String()
	assert.Contains(t, out, "HTTP request started")
	assert.Contains(t, out, "HTTP request completed")
	assert.Contains(t, out, "status_code=404")
	assert.Contains(t, out, "client_ip=198.51.100.4")
	assert.Contains(t, out, "level=WARN")

	assert.Equal(t, int64(1), tm.GetMetrics().TotalRequests)
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	tm := NewMiddleware(newBufferLogger(&buf), nil)

	handler := tm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(RequestIDHeader), "no request ID without chi RequestID")
	assert.Contains(t, buf.String(), "status_code=200")
}

func TestGetMetrics_Empty(t *testing.T) {
	tm := NewMiddleware(newBufferLogger(&bytes.Buffer{}), nil)
	assert.Equal(t, Metrics{}, tm.GetMetrics())
}

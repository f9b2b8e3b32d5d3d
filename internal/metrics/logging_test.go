package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serveLogged runs req through LoggingMiddleware and returns the recorder and
// the decoded log line
func serveLogged(t *testing.T, req *http.Request, status int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log: %s", buf.String())
	return w, entry
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/symbols/%5EGSPC/drawdowns", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	_, entry := serveLogged(t, req, http.StatusOK)

	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/symbols/^GSPC/drawdowns", entry["path"])
	assert.Equal(t, 200.0, entry["status"])
	assert.Contains(t, entry, "duration_ms")
}

func TestLoggingMiddleware_AddsRequestID(t *testing.T) {
	w, entry := serveLogged(t, httptest.NewRequest("GET", "/test", nil), http.StatusOK)

	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)
	assert.Len(t, requestID, 36)
	assert.Equal(t, requestID, entry["request_id"])
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	w, entry := serveLogged(t, req, http.StatusOK)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", entry["request_id"])
}

func TestLoggingMiddleware_LogsErrorStatus(t *testing.T) {
	_, entry := serveLogged(t, httptest.NewRequest("GET", "/test", nil), http.StatusUnprocessableEntity)
	assert.Equal(t, 422.0, entry["status"])
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote address", "", "10.0.0.1:54321"},
		{"forwarded", "203.0.113.50", "203.0.113.50"},
		{"forwarded chain", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			_, entry := serveLogged(t, req, http.StatusOK)
			assert.Equal(t, tt.want, entry["client_ip"])
		})
	}
}

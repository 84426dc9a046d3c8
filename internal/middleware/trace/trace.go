// Package trace tags each request with an id and logs its outcome.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	clog "caja/internal/log"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

// Middleware assigns request ids, stores a request-scoped logger in the
// context and logs every completed request.
type Middleware struct {
	logger    *clog.Logger
	extractIP func(*http.Request) string
	onSuspect func(*http.Request) bool
}

// NewMiddleware builds the tracing middleware. suspect, when set, is asked
// about every request; flagged ones get a warning log line.
func NewMiddleware(logger *clog.Logger, extractIP func(*http.Request) string, suspect func(*http.Request) bool) *Middleware {
	return &Middleware{
		logger:    logger.WithComponent(clog.ComponentHTTP),
		extractIP: extractIP,
		onSuspect: suspect,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get("X-Request-ID")
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		logger := m.logger.With(clog.FieldRequestID, requestID)
		ctx = clog.WithLogger(ctx, logger)
		r = r.WithContext(ctx)

		if m.onSuspect != nil && m.onSuspect(r) {
			logger.WithComponent(clog.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				clog.FieldClientIP, clientIP,
				clog.FieldMethod, r.Method,
				clog.FieldPath, r.URL.Path,
				clog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		structured := clog.NewStructuredLogger(logger)
		structured.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter captures the status code for the completion log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// validRequestID accepts caller ids that are short and printable.
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

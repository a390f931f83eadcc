package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSlowRequest is the threshold used when none is configured.
const DefaultSlowRequest = 200 * time.Millisecond

// HeaderRequestID carries the request id in both directions. A client that
// sends a UUID here keeps it, so its save and the server log share one id.
const HeaderRequestID = "X-Request-ID"

const requestIDContextKey contextKey = "request_id"

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestIDFromContext returns the id Timing assigned to the request, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// requestID adopts the client's id when it is a UUID and mints one otherwise.
func requestID(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get(HeaderRequestID)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Timing assigns every non-static request an id and logs one line when it
// completes: "request" at DEBUG, or "slow_request" at WARN once it takes
// threshold or longer. The line is written even if the handler panics.
// PRE: none
// POST: threshold <= 0 uses DefaultSlowRequest
func Timing(threshold time.Duration) func(http.Handler) http.Handler {
	if threshold <= 0 {
		threshold = DefaultSlowRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			id := requestID(r)
			w.Header().Set(HeaderRequestID, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				elapsed := time.Since(start)
				level, msg := slog.LevelDebug, "request"
				if elapsed >= threshold {
					level, msg = slog.LevelWarn, "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"request_id", id,
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"duration_ms", float64(elapsed.Microseconds())/1000.0,
				)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

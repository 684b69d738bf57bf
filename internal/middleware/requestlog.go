package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
)

// RequestLogger writes one log line per request and records its latency
// under the matched route pattern.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Auth runs further down the chain and stores the user on a derived
		// request, so read it back through this holder.
		holder := &userHolder{}
		r = r.WithContext(withUserHolder(r.Context(), holder))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordRequest(r.Method, route, status, duration)

		event := logging.Ctx(r.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Int("bytes", ww.BytesWritten()).
			Str("user_id", holder.userID).
			Msg("request")
	})
}

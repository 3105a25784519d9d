package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	pnet "github.com/ditsyandrea22/celo-identity/internal/platform/net"
)

// AccessLogOptions tunes AccessLogZerolog
type AccessLogOptions struct {
	// Slow raises the line to warn for requests at least this long, 0 never does
	Slow time.Duration

	// Observe, when set, gets one sample per request keyed by route pattern; the metrics manager plugs in here
	Observe func(method, route string, status int, elapsed time.Duration)
}

// AccessLogZerolog writes one line per request through the request scoped logger
func AccessLogZerolog(opt AccessLogOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)

			log := logger.C(logger.WithRequest(r.Context(), pnet.RequestID(r.Context())))
			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Msg("request done")

			if opt.Observe != nil {
				opt.Observe(r.Method, route, status, elapsed)
			}
		})
	}
}

// routePattern is the matched chi pattern, or the raw path when chi did not route the request
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

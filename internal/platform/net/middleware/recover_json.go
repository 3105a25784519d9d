package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	pnet "github.com/ditsyandrea22/celo-identity/internal/platform/net"
)

// failure has the same keys as the handler envelope, so clients parse one shape
type failure struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
}

// writeError answers before any handler ran; a positive retryAfter is sent as whole seconds, at least 1
func writeError(w http.ResponseWriter, r *http.Request, err error, retryAfter time.Duration) {
	id := pnet.RequestID(r.Context())
	status := perr.HTTPStatus(err)

	h := w.Header()
	if id != "" {
		h.Set("X-Request-ID", id)
	}
	if retryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(max(1, int(retryAfter.Round(time.Second)/time.Second))))
	}
	h.Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failure{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       perr.CodeOf(err),
		Error:      perr.WireFrom(err).Message,
		RequestID:  id,
	})
}

// RecoverJSON turns a handler panic into a 500 envelope and logs the stack
// http.ErrAbortHandler is re-raised so net/http can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()))
			logger.C(ctx).Error().
				Interface("panic", v).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			writeError(w, r, perr.PanicErrf("panic recovered"), 0)
		}()
		next.ServeHTTP(w, r)
	})
}

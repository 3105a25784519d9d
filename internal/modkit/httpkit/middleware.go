package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack; the zero value is usable
type StackOptions struct {
	// Limiter throttles per client key, nil turns rate limiting off
	Limiter middleware.Limiter
	Policy  middleware.LimitPolicy

	// Observe gets one sample per request, keyed by route pattern
	Observe func(method, route string, status int, elapsed time.Duration)

	Slow    time.Duration
	Timeout time.Duration

	// MaxInFlight caps concurrent requests, 0 is unbounded
	MaxInFlight int

	CORS middleware.CORSOptions
}

const (
	defaultTimeout = 3 * time.Minute
	defaultSlow    = 5 * time.Second
)

// CommonStack is the /api/v1 middleware chain, outermost first
// the timeout sits innermost so a submission stuck on the ledger still gets logged
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Slow <= 0 {
		o.Slow = defaultSlow
	}
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.Slow, Observe: o.Observe}),
		middleware.CORS(o.CORS),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.RateLimit(o.Limiter, o.Policy),
	}
	if o.MaxInFlight > 0 {
		stack = append(stack, middleware.Throttle(o.MaxInFlight))
	}
	return append(stack, middleware.Timeout(o.Timeout))
}

// Package middleware is the API's middleware set: chi's stock handlers behind
// plain net/http signatures, CORS, the access log, panic recovery and rate limiting
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"

	pstrings "github.com/ditsyandrea22/celo-identity/internal/platform/strings"
)

// Middleware is the signature every entry of the stack has
type Middleware = func(http.Handler) http.Handler

func RequestID() Middleware              { return chimw.RequestID }
func RealIP() Middleware                 { return chimw.RealIP }
func NoCache() Middleware                { return chimw.NoCache }
func StripSlashes() Middleware           { return chimw.StripSlashes }
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// Throttle caps requests in flight across all clients; excess callers wait, then get 503
func Throttle(limit int) Middleware { return chimw.Throttle(limit) }

// Compress gzips responses for clients that accept it
func Compress(level int) Middleware { return chimw.NewCompressor(level).Handler }

// CORSOptions picks what browsers may send; empty fields take the defaults below
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS allows reads and claim submission from any dapp origin unless narrowed;
// Retry-After is exposed so browser clients can honour rate limits
func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins:   pstrings.IfEmpty(o.AllowedOrigins, []string{"*"}),
		AllowedMethods:   pstrings.IfEmpty(o.AllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		AllowedHeaders:   pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "Content-Type", "X-Request-ID", "X-Client-Key"}),
		ExposedHeaders:   pstrings.IfEmpty(o.ExposedHeaders, []string{"X-Request-ID", "Retry-After"}),
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}

// Package net provides utilities for working with request contexts
package net

import (
	"context"
	"net"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keyClient ctxKey = "client_key"

// WithRequest annotates context with the request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	return ctx
}

// WithClient annotates context with the key used to bucket a caller for rate limiting
func WithClient(ctx context.Context, key string) context.Context {
	if key != "" {
		ctx = context.WithValue(ctx, keyClient, key)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// ClientKey returns the caller key on the context if present
func ClientKey(ctx context.Context) string {
	if v, ok := ctx.Value(keyClient).(string); ok {
		return v
	}
	return ""
}

// ClientKeyFrom derives a caller key from the request
// an explicit X-Client-Key header wins, then the remote host (RealIP runs earlier in the stack)
func ClientKeyFrom(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-Client-Key")); k != "" {
		return "key:" + k
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

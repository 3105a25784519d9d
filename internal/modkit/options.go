package modkit

import (
	"net/http"

	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
)

// Option adjusts a module's Built before the constructor reads it
type Option func(*Built)

// Built is what a module constructor reads back from its options
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	// Ports is whatever another module handed over, e.g. the executor into contributions
	Ports any

	Subrouter func(phttp.Router) phttp.Router
	Register  func(phttp.Router)
}

// Build folds opts over a zero Built, last write wins
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	if b.Subrouter == nil {
		b.Subrouter = func(r phttp.Router) phttp.Router { return r }
	}
	return b
}

// Mount attaches routes under Prefix, or as a group when Prefix is empty
// module middleware runs first, then Subrouter, routes and the Register hook
func (b Built) Mount(r phttp.Router, routes func(phttp.Router)) {
	attach := func(rr phttp.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		if b.Subrouter != nil {
			rr = b.Subrouter(rr)
		}
		if routes != nil {
			routes(rr)
		}
		if b.Register != nil {
			b.Register(rr)
		}
	}
	if b.Prefix == "" {
		r.Group(attach)
		return
	}
	r.Route(b.Prefix, attach)
}

func WithName(name string) Option { return func(b *Built) { b.Name = name } }

func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends; repeated options accumulate
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) {
		next := make([]func(http.Handler) http.Handler, 0, len(b.Mw)+len(mw))
		b.Mw = append(append(next, b.Mw...), mw...)
	}
}

// WithPorts hands p to the module; the receiving module asserts its own Ports type
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

func WithSubrouter(fn func(phttp.Router) phttp.Router) Option {
	return func(b *Built) { b.Subrouter = fn }
}

// WithRegister adds routes after the module's own
func WithRegister(fn func(phttp.Router)) Option { return func(b *Built) { b.Register = fn } }

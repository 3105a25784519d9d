package http

import (
	mw "github.com/go-chi/chi/v5/middleware"
)

// MountProfiler serves pprof under prefix, e.g. /debug/pprof/, when enabled
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	r.Route(prefix, func(sub Router) {
		sub.Handle("/*", mw.Profiler())
	})
}

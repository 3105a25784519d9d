// Package http serves the /meta endpoints: liveness, readiness against the
// configured stores, build info and how the scoring pipeline is assembled
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ditsyandrea22/celo-identity/internal/core/version"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
)

const readyTimeout = 2 * time.Second

// Pinger is a store that can answer a readiness probe
type Pinger interface {
	Ping(context.Context) error
}

type redisPinger struct{ c redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

// RedisPinger lets the rate limiter's redis client take part in readiness
func RedisPinger(c redis.UniversalClient) Pinger { return redisPinger{c} }

// Deps feeds the handlers; a nil store is reported as skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Pipeline    PipelineResponse
	PG          any
	CH          any
	Redis       any
}

// HealthResponse answers /meta/health
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"celoid-api"`
	Started string `json:"started" example:"2026-03-03T13:00:00Z"`
	Now     string `json:"now"     example:"2026-03-03T13:05:00Z"`
}

// ReadyCheck is one store's probe result: ok, fail, skipped or unknown
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432 connect: connection refused"`
}

// ReadyResponse answers /meta/ready; status is ok, degraded or fail
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-03-03T13:05:00Z"`
}

// ServiceResponse answers /meta/service
type ServiceResponse struct {
	Name    string `json:"name"    example:"celoid-api"`
	Started string `json:"started" example:"2026-03-03T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// PipelineResponse answers /meta/pipeline
type PipelineResponse struct {
	LedgerMode string            `json:"ledger_mode" example:"evm"`
	Oracle     bool              `json:"oracle"      example:"true"`
	Ecosystem  string            `json:"ecosystem"   example:"celo"`
	Build      version.BuildInfo `json:"build"`
}

type handlers struct{ Deps }

// Register mounts the meta routes on r
func Register(r httpkit.Router, d Deps) {
	h := handlers{d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/pipeline", h.pipeline)
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.ServiceName, Started: stamp(h.StartedAt), Now: stamp(time.Now())}, nil
}

func probe(ctx context.Context, name string, store any) ReadyCheck {
	if store == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := store.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: "ok"}
}

// @Summary Readiness of postgres, clickhouse and redis
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	out := ReadyResponse{
		Status: "ok",
		Checks: []ReadyCheck{probe(ctx, "pg", h.PG), probe(ctx, "ch", h.CH), probe(ctx, "redis", h.Redis)},
		Now:    stamp(time.Now()),
	}
	for _, c := range out.Checks {
		switch {
		case c.Status == "fail":
			out.Status = "fail"
		case c.Status == "unknown" && out.Status == "ok":
			out.Status = "degraded"
		}
	}
	return out, nil
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h handlers) version(*http.Request) (any, error) { return version.Info(), nil }

// @Summary Service name and uptime in seconds
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.ServiceName,
		Started: stamp(h.StartedAt),
		Uptime:  int64(time.Since(h.StartedAt) / time.Second),
	}, nil
}

// @Summary Ledger backend, oracle availability and ecosystem profile
// @Tags Meta
// @Produce json
// @Success 200 {object} PipelineResponse
// @Router /meta/pipeline [get]
func (h handlers) pipeline(*http.Request) (any, error) {
	out := h.Pipeline
	out.Build = version.Info()
	return out, nil
}

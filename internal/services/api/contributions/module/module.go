// Package module wires contributions into the API using modkit
package module

import (
	"context"

	modkit "github.com/ditsyandrea22/celo-identity/internal/modkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	str "github.com/ditsyandrea22/celo-identity/internal/platform/strings"

	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/domain"
	chttp "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/http"
	crepo "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/repo"
	csvc "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/service"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

// Module implements the contributions API module
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports any

	repo crepo.Repo
	svc  csvc.Service
}

// New constructs the contributions module; Ports must carry the pipeline stages
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("contributions"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Extractor == nil || injected.Verifier == nil || injected.Executor == nil {
		panic("contributions API module requires Extractor, Verifier and Executor ports")
	}

	var repo crepo.Repo
	if deps.Durable() {
		repo = repokit.MustBind(crepo.NewPG(), deps.PG)
	} else {
		logger.Named("contributions").Warn().Msg("no postgres configured; contributions are in memory only")
		repo = crepo.NewMemory()
	}

	sub := submission.New(injected.Extractor, injected.Verifier, injected.Executor, repo, submission.Options{
		Metrics: deps.Metrics,
	})
	svc := csvc.New(repo, sub, injected.Ledger, csvc.Options{LedgerTimeout: cfg.LedgerTimeout})

	m := &Module{deps: deps, built: b, repo: repo, svc: svc}
	m.ports = domain.ServicePort(svc)
	return m
}

// Init creates the contributions tables when Postgres is enabled
func (m *Module) Init(ctx context.Context) error {
	if !m.deps.Durable() {
		return nil
	}
	return crepo.Init(ctx, m.deps.PG)
}

// Settler delivers resumed executions to this module's store
func (m *Module) Settler() submission.Settler { return submission.Settler{Sink: m.repo} }

// MountRoutes mounts the module routes; an empty prefix mounts at the API root
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) { chttp.Register(rr, m.svc) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.built.Name, "module name") }

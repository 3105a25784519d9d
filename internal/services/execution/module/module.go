// Package module wires the execution orchestrator and resumer and exposes their ports
package module

import (
	"context"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/modkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"

	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
	xrepo "github.com/ditsyandrea22/celo-identity/internal/services/execution/repo"
	"github.com/ditsyandrea22/celo-identity/internal/services/execution/service"
)

// Module defines the execution module
type Module struct {
	deps   modkit.Deps
	ports  Ports
	events *xrepo.CHEvents
}

// New constructs the execution module over gw
// checkpoints go to Postgres when deps.PG is set and stay in memory otherwise;
// step events go to ClickHouse when deps.CH is set and to the log otherwise
func New(deps modkit.Deps, gw ledger.Gateway, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)
	opts = merge(opts, overrides)

	var store dom.CheckpointStore
	if deps.Durable() {
		store = repokit.MustBind(xrepo.NewPG(), deps.PG)
	} else {
		logger.Named("execution").Warn().Msg("no postgres configured; checkpoints are in memory only")
		store = xrepo.NewMemory()
	}

	m := &Module{deps: deps}
	var events dom.EventSink = xrepo.NewLogEvents()
	if deps.CH != nil {
		m.events = xrepo.NewCHEvents(deps.CH)
		events = m.events
	}

	orch := service.New(gw, store, events, deps.Metrics, service.Config{
		StepTimeout: opts.StepTimeout,
		ReadTimeout: opts.ReadTimeout,
	})
	worker := service.NewResumer(orch, store, opts.Settler, deps.Metrics, service.ResumerConfig{
		WorkerID:    opts.WorkerID,
		Concurrency: opts.Concurrency,
		Batch:       opts.Batch,
		Poll:        opts.Poll,
		LeaseFor:    opts.LeaseFor,
		StaleAfter:  opts.StaleAfter,
		RetryBase:   opts.RetryBase,
		RetryMax:    opts.RetryMax,
		MaxAttempts: opts.MaxAttempts,
	})

	m.ports = Ports{
		Executor:    orch,
		Worker:      worker,
		Checkpoints: store,
	}
	return m
}

// Init creates the checkpoint table and the events table when their stores are enabled
func (m *Module) Init(ctx context.Context) error {
	if m.deps.Durable() {
		if err := xrepo.Init(ctx, m.deps.PG); err != nil {
			return err
		}
	}
	if m.events != nil {
		return m.events.Init(ctx)
	}
	return nil
}

// Ports returns the module ports (Executor, Worker, Checkpoints)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "execution" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}

func merge(opts, o Options) Options {
	if o.StepTimeout != 0 {
		opts.StepTimeout = o.StepTimeout
	}
	if o.ReadTimeout != 0 {
		opts.ReadTimeout = o.ReadTimeout
	}
	if o.WorkerID != "" {
		opts.WorkerID = o.WorkerID
	}
	if o.Concurrency != 0 {
		opts.Concurrency = o.Concurrency
	}
	if o.Batch != 0 {
		opts.Batch = o.Batch
	}
	if o.Poll != 0 {
		opts.Poll = o.Poll
	}
	if o.LeaseFor != 0 {
		opts.LeaseFor = o.LeaseFor
	}
	if o.StaleAfter != 0 {
		opts.StaleAfter = o.StaleAfter
	}
	if o.RetryBase != 0 {
		opts.RetryBase = o.RetryBase
	}
	if o.RetryMax != 0 {
		opts.RetryMax = o.RetryMax
	}
	if o.MaxAttempts != 0 {
		opts.MaxAttempts = o.MaxAttempts
	}
	if o.Settler != nil {
		opts.Settler = o.Settler
	}
	return opts
}

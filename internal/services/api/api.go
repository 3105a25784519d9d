// Package api provides the HTTP API for the application
package api

import (
	"context"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
	"github.com/ditsyandrea22/celo-identity/internal/platform/net/middleware"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"

	"github.com/ditsyandrea22/celo-identity/internal/modkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/module"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/swaggerkit"

	contribmod "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/module"
	metamod "github.com/ditsyandrea22/celo-identity/internal/services/api/meta/module"

	// Execution module (owns the Executor port)
	execmod "github.com/ditsyandrea22/celo-identity/internal/services/execution/module"
)

// Options are the API options
type Options struct {
	// Config is the unprefixed root; Mount derives CORE_API_, GITHUB_, ORACLE_ and LEDGER_ from it
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Metrics        *metrics.Manager
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
// the returned func releases the ledger connection
func Mount(ctx context.Context, r phttp.Router, opt Options) (func(), error) {
	if opt.Store == nil {
		opt.Store = &store.Store{}
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.NewManager(metrics.WithRuntimeCollectors())
	}
	apiCfg := opt.Config.Prefix("CORE_API_")

	// shared deps for modules
	deps := modkit.Deps{
		Cfg:     opt.Config,
		PG:      opt.Store.PG,
		CH:      opt.Store.CH,
		RDS:     opt.Store.RDS,
		Metrics: opt.Metrics,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	gw, closeLedger, err := ledger.Open(ctx, ledger.FromConfig(opt.Config))
	if err != nil {
		return nil, err
	}

	pipe, err := buildPipeline(ctx, opt.Config, opt.Metrics)
	if err != nil {
		closeLedger()
		return nil, err
	}

	// Construct the execution module first and extract its Executor port
	exec := execmod.New(deps, gw, execmod.Options{})
	executor := module.MustPortsOf[execmod.Ports](exec).Executor

	// Inject the pipeline ports into the contributions module
	contribs := contribmod.New(
		deps,
		modkit.WithPorts(contribmod.Ports{
			Extractor: pipe.extractor,
			Verifier:  pipe.verifier,
			Executor:  executor,
			Ledger:    gw,
		}),
	)

	if err := modkit.InitAll(ctx, exec, contribs); err != nil {
		closeLedger()
		return nil, err
	}

	mods := []module.Module{
		metamod.New(deps, metamod.Info{
			LedgerMode: ledger.FromConfig(opt.Config).Mode,
			Oracle:     pipe.oracleOn,
			Ecosystem:  pipe.profile,
		}),
		exec,     // include execution so its ports are registered
		contribs, // API module that depends on the Executor port
	}

	stack := httpkit.CommonStack(httpkit.StackOptions{
		Limiter:     limiter(apiCfg, deps),
		Policy:      policy(apiCfg),
		Observe:     opt.Metrics.ObserveHTTP,
		Timeout:     apiCfg.MayDuration("REQUEST_TIMEOUT", 0),
		MaxInFlight: apiCfg.MayInt("MAX_IN_FLIGHT", 0),
		CORS: middleware.CORSOptions{
			AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", nil),
		},
	})

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		// Swagger + profiler + metrics
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
		r.Handle("/metrics", opt.Metrics.Handler())

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			m.MountRoutes(api)
		}
	})
	return closeLedger, nil
}

// limiter shares buckets through redis when the store has it
func limiter(cfg config.Conf, deps modkit.Deps) middleware.Limiter {
	if !cfg.MayBool("RATE_LIMIT", true) {
		return nil
	}
	p := policy(cfg)
	if deps.RDS != nil {
		return middleware.NewRedisLimiter(deps.RDS, cfg.MayString("RATE_LIMIT_PREFIX", ""), p)
	}
	return middleware.NewLocalLimiter(p)
}

func policy(cfg config.Conf) middleware.LimitPolicy {
	return middleware.LimitPolicy{
		PerMinute: cfg.MayInt("RATE_PER_MINUTE", 30),
		Burst:     cfg.MayInt("RATE_BURST", 10),
	}
}

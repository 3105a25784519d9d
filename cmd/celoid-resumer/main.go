package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/version"
	"github.com/ditsyandrea22/celo-identity/internal/modkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/module"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"

	crepo "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/repo"
	execmod "github.com/ditsyandrea22/celo-identity/internal/services/execution/module"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	// Flags mirror RESUMER_* so the module reads one source either way
	var (
		fConc    = flag.Int("concurrency", 4, "checkpoints resumed in parallel")
		fBatch   = flag.Int("batch", 32, "checkpoints leased per poll")
		fPoll    = flag.Duration("poll", 2*time.Second, "idle poll interval")
		fStale   = flag.Duration("stale_after", 10*time.Minute, "running checkpoints older than this are treated as abandoned")
		fMaxAtt  = flag.Int("max_attempts", 20, "resume attempts before a checkpoint is failed")
		fWorker  = flag.String("worker_id", "", "lease owner id (defaults to hostname)")
		fMetrics = flag.String("metrics_addr", ":9102", "prometheus listen address, empty disables")
	)
	flag.Parse()

	mustSetEnv("RESUMER_CONCURRENCY", fmt.Sprintf("%d", *fConc))
	mustSetEnv("RESUMER_BATCH", fmt.Sprintf("%d", *fBatch))
	mustSetEnv("RESUMER_POLL", fPoll.String())
	mustSetEnv("RESUMER_STALE_AFTER", fStale.String())
	mustSetEnv("RESUMER_MAX_ATTEMPTS", fmt.Sprintf("%d", *fMaxAtt))
	if *fWorker == "" {
		*fWorker, _ = os.Hostname()
	}
	mustSetEnv("RESUMER_WORKER_ID", *fWorker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	version.Service = "celoid-resumer"
	l := logger.Get()

	cfg := store.FromConfig(root, "resumer")
	if !cfg.PG.Enabled {
		l.Fatal().Msg("resumer needs SERVICE_PGSQL_DBURL; in-memory checkpoints do not outlive the api process")
	}
	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	gw, closeLedger, err := ledger.Open(ctx, ledger.FromConfig(root))
	if err != nil {
		l.Panic().Err(err).Msg("ledger.Open failed")
	}
	defer closeLedger()

	mx := metrics.NewManager(metrics.WithRuntimeCollectors())
	if *fMetrics != "" {
		go func() {
			srv := &http.Server{Addr: *fMetrics, Handler: mx.Handler(), ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				l.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	deps := modkit.Deps{
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Log:     *l,
		Metrics: mx,
	}

	// the sink is the same contributions store the api writes
	sink := repokit.MustBind(crepo.NewPG(), st.PG)
	if err := crepo.Init(ctx, st.PG); err != nil {
		l.Panic().Err(err).Msg("contributions schema init failed")
	}

	mod := execmod.New(deps, gw, execmod.Options{Settler: submission.Settler{Sink: sink}})
	if err := mod.Init(ctx); err != nil {
		l.Panic().Err(err).Msg("execution schema init failed")
	}
	module.Register(mod.Name(), mod.Ports())

	ports := module.MustPortsOf[execmod.Ports](mod)

	l.Info().Str("worker_id", *fWorker).Int("concurrency", *fConc).Msg("resumer starting")
	if err := ports.Worker.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("resumer worker failed")
	}
}

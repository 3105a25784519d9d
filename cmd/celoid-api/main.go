// @title         celo-identity API
// @version       0.1.0
// @description   Contribution claims, contributor tiers and on-chain reputation

//go:generate swag init --v3.1 -g main.go -d ./,../../internal/services/api -o ../../internal/services/api/docs

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ditsyandrea22/celo-identity/internal/core/version"
	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"

	"github.com/ditsyandrea22/celo-identity/internal/services/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	version.Service = "celoid-api"

	// bring up logging early
	l := logger.Get()

	// open the platform store (postgres, clickhouse and redis are each optional)
	st, err := store.Open(ctx, store.FromConfig(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		l.Panic().Err(err).Msg("store not reachable")
	}

	// http server (reads CORE_API_PORT / CORE_API_WRITE_TIMEOUT)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	closeLedger, err := api.Mount(
		ctx,
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			Metrics:        metrics.NewManager(metrics.WithRuntimeCollectors()),
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	if err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}
	defer closeLedger()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

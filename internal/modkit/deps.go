package modkit

import (
	"github.com/redis/go-redis/v9"

	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"
)

// Deps is what a binary hands every module it builds
// PG, CH and RDS are nil when the matching service is disabled, and modules fall back to memory
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	RDS     redis.UniversalClient
	Metrics *metrics.Manager
}

// Durable reports whether checkpoints and contributions survive a restart
func (d Deps) Durable() bool { return d.PG != nil }

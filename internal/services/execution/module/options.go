package module

import (
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// Options controls the orchestrator and the resumer worker
type Options struct {
	StepTimeout time.Duration
	ReadTimeout time.Duration

	WorkerID    string
	Concurrency int
	Batch       int
	Poll        time.Duration
	LeaseFor    time.Duration
	StaleAfter  time.Duration
	RetryBase   time.Duration
	RetryMax    time.Duration
	MaxAttempts int

	// Settler receives resumed executions that landed; optional
	Settler dom.Settler
}

// FromConfig reads EXECUTION_* and RESUMER_* values
func FromConfig(cfg config.Conf) Options {
	ex := cfg.Prefix("EXECUTION_")
	rs := cfg.Prefix("RESUMER_")
	return Options{
		StepTimeout: ex.MayDuration("STEP_TIMEOUT", 2*time.Minute),
		ReadTimeout: ex.MayDuration("READ_TIMEOUT", 10*time.Second),

		WorkerID:    rs.MayString("WORKER_ID", "resumer"),
		Concurrency: rs.MayInt("CONCURRENCY", 4),
		Batch:       rs.MayInt("BATCH", 32),
		Poll:        rs.MayDuration("POLL", 2*time.Second),
		LeaseFor:    rs.MayDuration("LEASE_FOR", 5*time.Minute),
		StaleAfter:  rs.MayDuration("STALE_AFTER", 10*time.Minute),
		RetryBase:   rs.MayDuration("RETRY_BASE", 30*time.Second),
		RetryMax:    rs.MayDuration("RETRY_MAX", 30*time.Minute),
		MaxAttempts: rs.MayInt("MAX_ATTEMPTS", 20),
	}
}

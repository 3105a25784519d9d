package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// ResumerConfig controls the resumer loop
type ResumerConfig struct {
	WorkerID    string
	Concurrency int
	Batch       int
	Poll        time.Duration
	LeaseFor    time.Duration
	StaleAfter  time.Duration
	RetryBase   time.Duration
	RetryMax    time.Duration
	MaxAttempts int
}

// Resumer leases stalled checkpoints and drives their tail steps
type Resumer struct {
	exec    dom.ExecutorPort
	store   dom.CheckpointStore
	settler dom.Settler
	metrics *metrics.Manager
	cfg     ResumerConfig
	now     func() time.Time
}

var _ dom.WorkerPort = (*Resumer)(nil)

// NewResumer wires the worker; settler and m may be nil
func NewResumer(exec dom.ExecutorPort, store dom.CheckpointStore, settler dom.Settler, m *metrics.Manager, cfg ResumerConfig) *Resumer {
	if cfg.WorkerID == "" {
		cfg.WorkerID = "resumer"
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 32
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 2 * time.Second
	}
	if cfg.LeaseFor <= 0 {
		cfg.LeaseFor = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 30 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 30 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	return &Resumer{
		exec:    exec,
		store:   store,
		settler: settler,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run polls for resumable checkpoints until ctx ends
func (w *Resumer) Run(ctx context.Context) error {
	log := logger.Named("execution-resumer")
	sem := make(chan struct{}, max(1, w.cfg.Concurrency))
	ticker := time.NewTicker(w.cfg.Poll)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.Tick(ctx, sem, &wg)
			if err != nil {
				log.Error().Err(err).Msg("lease checkpoints failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("leased", n).Msg("resuming checkpoints")
			}
		}
	}
}

// Tick leases one batch and hands each checkpoint to a goroutine bounded by sem
func (w *Resumer) Tick(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) (int, error) {
	cps, err := w.store.Lease(ctx, w.cfg.WorkerID, w.cfg.Batch, w.cfg.LeaseFor, w.cfg.StaleAfter)
	if err != nil {
		return 0, err
	}
	for i := range cps {
		cp := cps[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.Handle(ctx, cp)
		}()
	}
	return len(cps), nil
}

// Handle resumes one leased checkpoint and releases it
func (w *Resumer) Handle(ctx context.Context, cp dom.Checkpoint) {
	log := logger.C(logger.WithSubmission(ctx, cp.Address.Hex(), cp.Proof.Hex()))
	bg := context.WithoutCancel(ctx)

	if cp.Attempts >= w.cfg.MaxAttempts {
		cp.Status = dom.StatusFailed
		cp.RetrySafe = false
		cp.Cause = fmt.Sprintf("gave up after %d attempts: %s", cp.Attempts, cp.Cause)
		if err := w.store.Save(bg, cp); err != nil {
			log.Error().Err(err).Msg("checkpoint save failed")
		}
		w.release(bg, cp)
		w.metrics.Resumed("exhausted")
		log.Error().Int("attempts", cp.Attempts).Str("step", string(cp.Step)).Msg("execution abandoned")
		return
	}

	res := w.exec.Resume(ctx, cp)
	outcome := "complete"
	switch {
	case res.RetrySafe:
		outcome = "stalled"
	case res.Err != nil:
		outcome = "failed"
	}
	w.metrics.Resumed(outcome)

	if res.Success && w.settler != nil {
		if err := w.settler.Settle(bg, res); err != nil {
			log.Error().Err(err).Msg("settle resumed execution failed")
		}
	}
	w.release(bg, cp)
}

func (w *Resumer) release(ctx context.Context, cp dom.Checkpoint) {
	next := w.now().Add(w.Backoff(cp.Attempts))
	if err := w.store.Release(ctx, cp.Proof, next); err != nil {
		logger.C(ctx).Error().Err(err).Str("proof_hash", cp.Proof.Hex()).Msg("checkpoint release failed")
	}
}

// Backoff is RetryBase doubled per attempt, capped at RetryMax
func (w *Resumer) Backoff(attempts int) time.Duration {
	d := w.cfg.RetryBase
	for i := 0; i < attempts && d < w.cfg.RetryMax; i++ {
		d *= 2
	}
	return min(d, w.cfg.RetryMax)
}

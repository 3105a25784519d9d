// Package service implements the execution orchestrator and its resumer
package service

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/badge"
	"github.com/ditsyandrea22/celo-identity/internal/core/proof"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// Config bounds every ledger interaction
type Config struct {
	// StepTimeout covers submit and confirm of one mutation
	StepTimeout time.Duration
	// ReadTimeout covers one score read
	ReadTimeout time.Duration
}

// Orchestrator drives Scoring → Registering → ScoreUpdating → BadgeChecking → Minting → Complete
type Orchestrator struct {
	gw      ledger.Gateway
	store   dom.CheckpointStore
	events  dom.EventSink
	metrics *metrics.Manager
	cfg     Config
	now     func() time.Time
}

var _ dom.ExecutorPort = (*Orchestrator)(nil)

// New wires an orchestrator; events and m may be nil
func New(gw ledger.Gateway, store dom.CheckpointStore, events dom.EventSink, m *metrics.Manager, cfg Config) *Orchestrator {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 2 * time.Minute
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	return &Orchestrator{
		gw:      gw,
		store:   store,
		events:  events,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Execute runs a fresh execution for req
//
// A replayed payload finds its checkpoint already present; the run then goes to
// the ledger without persisting, and the ledger refuses the reused proof
func (o *Orchestrator) Execute(ctx context.Context, req dom.Request) dom.Result {
	r := o.newRun(ctx, dom.Checkpoint{
		Address: req.Address,
		Delta:   req.Delta,
		Step:    dom.StepScoring,
		Status:  dom.StatusRunning,
	}, false)

	h, err := proof.Hash(req.Claim)
	if err != nil {
		r.fail(ctx, dom.StepScoring, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "canonical claim"))
		return r.result()
	}
	r.cp.Proof = h
	ctx = logger.WithSubmission(ctx, req.Address.Hex(), h.Hex())
	r.log = logger.C(ctx)

	if req.Delta == 0 {
		r.fail(ctx, dom.StepScoring, perr.InvalidArgf("nothing to execute for a zero delta"))
		return r.result()
	}

	prev, err := o.readScore(ctx, req.Address)
	if err != nil {
		r.fail(ctx, dom.StepScoring, err)
		return r.result()
	}
	r.cp.PrevScore = prev
	r.cp.Step = dom.StepRegistering

	created, err := o.store.Create(context.WithoutCancel(ctx), r.cp)
	switch {
	case err != nil:
		r.log.Error().Err(err).Msg("checkpoint create failed; executing without persistence")
	case !created:
		r.log.Info().Msg("checkpoint exists for proof; executing as a replay")
	default:
		r.persist = true
	}
	r.emit(ctx, dom.StepScoring, dom.OutcomeConfirmed, nil, "")
	return o.drive(ctx, r)
}

// Resume continues cp from its first unconfirmed step
// a step with a recorded pending tx is re-confirmed, never resubmitted
func (o *Orchestrator) Resume(ctx context.Context, cp dom.Checkpoint) dom.Result {
	ctx = logger.WithSubmission(ctx, cp.Address.Hex(), cp.Proof.Hex())
	r := o.newRun(ctx, cp, true)
	r.persist = true

	switch cp.Status {
	case dom.StatusComplete, dom.StatusFailed:
		return r.result()
	}
	if cp.Step == dom.StepScoring || cp.Step == dom.StepFailed || cp.Step == "" {
		r.cp.Step = cp.FailedStep
		if r.cp.Step == "" || r.cp.Step == dom.StepScoring {
			r.cp.Step = dom.StepRegistering
		}
	}

	r.log.Info().Str("step", string(r.cp.Step)).Int("attempts", cp.Attempts).Msg("resuming execution")
	r.cp.Status = dom.StatusRunning
	r.cp.FailedStep, r.cp.Cause, r.cp.RetrySafe = "", "", false
	r.save(ctx)
	return o.drive(ctx, r)
}

func (o *Orchestrator) drive(ctx context.Context, r *run) dom.Result {
	for {
		step := r.cp.Step
		next := step
		var err error

		switch step {
		case dom.StepRegistering:
			err, next = r.register(ctx), dom.StepScoreUpdating
		case dom.StepScoreUpdating:
			err, next = r.increase(ctx), dom.StepBadgeChecking
		case dom.StepBadgeChecking:
			next = r.checkBadge(ctx)
		case dom.StepMinting:
			err, next = r.mint(ctx), dom.StepComplete
		case dom.StepComplete:
			r.cp.Status = dom.StatusComplete
			r.save(ctx)
			r.log.Info().Uint64("new_score", r.cp.NewScore).Msg("execution complete")
			return r.result()
		default:
			err = perr.Internalf("cannot run step %q", step)
		}

		if err != nil {
			r.fail(ctx, step, err)
			return r.result()
		}
		r.cp.Step = next
		r.save(ctx)
	}
}

func (o *Orchestrator) readScore(ctx context.Context, addr common.Address) (uint64, error) {
	rctx, cancel := context.WithTimeout(ctx, o.cfg.ReadTimeout)
	defer cancel()
	return o.gw.ScoreOf(rctx, addr)
}

// run is the mutable state of one Execute or Resume call
type run struct {
	o       *Orchestrator
	cp      dom.Checkpoint
	log     *logger.Logger
	persist bool
	resumed bool
	err     error
}

func (o *Orchestrator) newRun(ctx context.Context, cp dom.Checkpoint, resumed bool) *run {
	return &run{o: o, cp: cp, log: logger.C(ctx), resumed: resumed}
}

func (r *run) register(ctx context.Context) error {
	if r.resumed && r.cp.Pending == nil {
		// a lost submit may still have landed; the registry is the authority
		used, err := r.o.gw.IsProofUsed(ctx, r.cp.Proof)
		if err == nil && used {
			// the registering tx is not recoverable here; the result reports it as unknown
			r.log.Warn().Msg("proof already registered; skipping registration")
			r.emit(ctx, dom.StepRegistering, dom.OutcomeSkipped, nil, "proof already registered")
			return nil
		}
	}
	rc, err := r.mutate(ctx, dom.StepRegistering, ledger.OpRegister, func(c context.Context) (ledger.Pending, error) {
		return r.o.gw.RegisterProof(c, r.cp.Address, r.cp.Proof, r.cp.Delta)
	})
	if err != nil {
		return err
	}
	r.cp.RegistryTx = &rc.Tx
	return nil
}

// increase submits and confirms the score increase, then reads the total back
// BadgeChecking sees max(read, prev+delta): a stale or failed read falls back to the
// locally predicted total instead of the ledger-confirmed one
func (r *run) increase(ctx context.Context) error {
	rc, err := r.mutate(ctx, dom.StepScoreUpdating, ledger.OpIncrease, func(c context.Context) (ledger.Pending, error) {
		return r.o.gw.IncreaseScore(c, r.cp.Address, r.cp.Delta)
	})
	if err != nil {
		return err
	}
	r.cp.ScoreTx = &rc.Tx

	expected := r.cp.PrevScore + r.cp.Delta
	got, err := r.o.readScore(context.WithoutCancel(ctx), r.cp.Address)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Uint64("expected", expected).Msg("score read-back failed; using expected total")
	case got < expected:
		r.log.Warn().Uint64("read", got).Uint64("expected", expected).Msg("stale score read-back")
	}
	r.cp.NewScore = max(got, expected)
	return nil
}

func (r *run) checkBadge(ctx context.Context) dom.Step {
	t, crossed := tier.Crossed(r.cp.PrevScore, r.cp.NewScore)
	if !crossed {
		r.emit(ctx, dom.StepBadgeChecking, dom.OutcomeSkipped, nil, "no new tier")
		return dom.StepComplete
	}
	r.cp.BadgeTier = t
	r.log.Info().Str("tier", t.String()).Uint64("prev_score", r.cp.PrevScore).
		Uint64("new_score", r.cp.NewScore).Msg("tier crossed")
	r.emit(ctx, dom.StepBadgeChecking, dom.OutcomeConfirmed, nil, t.String())
	return dom.StepMinting
}

func (r *run) mint(ctx context.Context) error {
	art, err := badge.Build(r.cp.Address, r.cp.BadgeTier)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "build badge")
	}
	r.cp.BadgeURI = art.URI
	rc, err := r.mutate(ctx, dom.StepMinting, ledger.OpMint, func(c context.Context) (ledger.Pending, error) {
		return r.o.gw.MintBadge(c, r.cp.Address, ledger.Badge{
			TokenID: art.TokenID,
			URI:     art.URI,
			Tier:    uint8(art.Tier),
		})
	})
	if err != nil {
		return err
	}
	r.cp.BadgeTx = &rc.Tx
	r.o.metrics.BadgeMinted(art.Tier.String())
	return nil
}

// mutate submits (unless a pending tx for op is recorded) and confirms one ledger write
// the step runs detached from the caller so cancellation never strands a tx mid-flight
func (r *run) mutate(
	ctx context.Context,
	step dom.Step,
	op ledger.Op,
	send func(context.Context) (ledger.Pending, error),
) (ledger.Receipt, error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.o.cfg.StepTimeout)
	defer cancel()
	start := time.Now()

	if r.cp.Pending != nil && r.cp.Pending.Op == op {
		r.log.Info().Str("step", string(step)).Str("tx", r.cp.Pending.Tx.Hex()).Msg("re-confirming pending tx")
	} else {
		r.cp.Pending = nil
		p, err := send(sctx)
		if p.Tx != (common.Hash{}) {
			r.cp.Pending = &p
			r.save(ctx)
			r.emit(ctx, step, dom.OutcomeSubmitted, &p.Tx, "")
		}
		if err != nil {
			r.o.metrics.LedgerStep(string(step), "failed", time.Since(start))
			return ledger.Receipt{}, err
		}
	}

	rc, err := r.o.gw.Confirm(sctx, *r.cp.Pending)
	if err != nil {
		r.o.metrics.LedgerStep(string(step), "failed", time.Since(start))
		return ledger.Receipt{}, err
	}
	r.cp.Pending = nil
	r.o.metrics.LedgerStep(string(step), "confirmed", time.Since(start))
	r.log.Info().Str("step", string(step)).Str("tx", rc.Tx.Hex()).Uint64("block", rc.Block).Msg("step confirmed")
	r.emit(ctx, step, dom.OutcomeConfirmed, &rc.Tx, "")
	return rc, nil
}

// fail records a terminal or resumable failure at step
func (r *run) fail(ctx context.Context, step dom.Step, err error) {
	if _, ok := perr.As(err); !ok {
		err = perr.Wrap(err, perr.ErrorCodeUnknown, string(step)+" failed")
	}
	err = perr.WithOp(err, string(step))

	r.err = err
	r.cp.Step = step
	r.cp.FailedStep = step
	r.cp.Cause = err.Error()
	r.cp.RetrySafe = perr.Retryable(err)
	r.cp.Status = dom.StatusFailed
	if r.cp.RetrySafe {
		r.cp.Status = dom.StatusStalled
	}

	ev := r.log.Warn()
	if !r.cp.RetrySafe {
		ev = r.log.Error()
	}
	ev.Err(err).Str("step", string(step)).Bool("retry_safe", r.cp.RetrySafe).Msg("execution step failed")

	r.save(ctx)
	r.emit(ctx, step, dom.OutcomeFailed, nil, r.cp.Cause)
}

func (r *run) save(ctx context.Context) {
	if !r.persist {
		return
	}
	if err := r.o.store.Save(context.WithoutCancel(ctx), r.cp); err != nil {
		r.log.Error().Err(err).Str("step", string(r.cp.Step)).Msg("checkpoint save failed")
	}
}

func (r *run) emit(ctx context.Context, step dom.Step, outcome dom.Outcome, tx *common.Hash, cause string) {
	if r.o.events == nil {
		return
	}
	ev := dom.StepEvent{
		Proof:   r.cp.Proof,
		Address: r.cp.Address,
		Step:    step,
		Outcome: outcome,
		Tx:      tx,
		Cause:   cause,
		At:      r.o.now().UTC(),
	}
	if err := r.o.events.Emit(context.WithoutCancel(ctx), ev); err != nil {
		r.log.Warn().Err(err).Str("step", string(step)).Msg("step event dropped")
	}
}

func (r *run) result() dom.Result {
	cp := r.cp
	res := dom.Result{
		Success:    cp.ScoreTx != nil,
		Step:       cp.Step,
		Proof:      cp.Proof,
		Address:    cp.Address,
		Delta:      cp.Delta,
		RegistryTx: cp.RegistryTx,
		ScoreTx:    cp.ScoreTx,
		BadgeTx:    cp.BadgeTx,
		PrevScore:  cp.PrevScore,
		NewScore:   cp.NewScore,
		RetrySafe:  cp.Status == dom.StatusStalled && cp.RetrySafe,
		Err:        r.err,
	}
	res.RegistryTxUnknown = res.Success && cp.RegistryTx == nil
	if cp.BadgeTx != nil {
		res.Badge, res.BadgeURI = cp.BadgeTier, cp.BadgeURI
	}
	if res.Err == nil && cp.Status == dom.StatusFailed && cp.Cause != "" {
		res.Err = perr.WithOp(perr.Internalf("%s", cp.Cause), string(cp.FailedStep))
	}
	return res
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/proof"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
	xrepo "github.com/ditsyandrea22/celo-identity/internal/services/execution/repo"
)

var addr = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")

type recorder struct {
	mu     sync.Mutex
	events []dom.StepEvent
}

func (r *recorder) Emit(_ context.Context, ev dom.StepEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) outcomes(step dom.Step) []dom.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.Outcome
	for _, ev := range r.events {
		if ev.Step == step {
			out = append(out, ev.Outcome)
		}
	}
	return out
}

type fixture struct {
	gw     *ledger.Memory
	store  *xrepo.Memory
	events *recorder
	orch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gw: ledger.NewMemory(), store: xrepo.NewMemory(), events: &recorder{}}
	f.orch = New(f.gw, f.store, f.events, nil, Config{StepTimeout: time.Second, ReadTimeout: time.Second})
	return f
}

// seed gives addr a starting score outside of any execution
func (f *fixture) seed(t *testing.T, score uint64) {
	t.Helper()
	if score == 0 {
		return
	}
	p, err := f.gw.IncreaseScore(context.Background(), addr, score)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.gw.Confirm(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func claim(title string) contrib.Claim {
	return contrib.Claim{
		ProfileURL: "https://github.com/octocat",
		Address:    addr.Hex(),
		Type:       contrib.MergedPR,
		Title:      title,
	}
}

func TestExecuteHappyPathWithoutBadge(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 120)

	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("a"), Address: addr, Delta: 30})
	if !res.Success || res.Err != nil || res.Step != dom.StepComplete {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
	if res.RegistryTx == nil || res.RegistryTxUnknown || res.ScoreTx == nil || res.BadgeTx != nil {
		t.Fatalf("txs = %+v", res)
	}
	if res.PrevScore != 120 || res.NewScore != 150 {
		t.Fatalf("scores = %d -> %d", res.PrevScore, res.NewScore)
	}
	if n := f.gw.Calls(ledger.OpMint); n != 0 {
		t.Fatalf("120 -> 150 must not mint, got %d", n)
	}
	if got := f.events.outcomes(dom.StepBadgeChecking); len(got) != 1 || got[0] != dom.OutcomeSkipped {
		t.Fatalf("badge checking events = %v", got)
	}

	cp, err := f.store.Get(context.Background(), res.Proof)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Status != dom.StatusComplete || cp.Step != dom.StepComplete || cp.Pending != nil {
		t.Fatalf("checkpoint = %+v", cp)
	}
}

func TestExecuteMintsOnTierCrossing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 90)

	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("b"), Address: addr, Delta: 20})
	if !res.Success || res.Err != nil {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
	if f.gw.Calls(ledger.OpMint) != 1 || res.BadgeTx == nil || res.Badge != tier.Builder {
		t.Fatalf("expected a BUILDER mint, got %+v", res)
	}
	kit.MustContain(t, res.BadgeURI, "ipfs://")
	if got := f.gw.Badges(addr); len(got) != 1 || got[0].Tier != uint8(tier.Builder) {
		t.Fatalf("badges = %+v", got)
	}
}

func TestExecuteReplayIsRejectedAtRegistering(t *testing.T) {
	f := newFixture(t)
	req := dom.Request{Claim: claim("same"), Address: addr, Delta: 10}

	first := f.orch.Execute(context.Background(), req)
	if !first.Success {
		t.Fatalf("first = %+v err=%v", first, first.Err)
	}

	second := f.orch.Execute(context.Background(), req)
	if second.Success || second.Step != dom.StepRegistering {
		t.Fatalf("replay = %+v", second)
	}
	if !perr.IsCode(second.Err, perr.ErrorCodeLedgerRejected) {
		t.Fatalf("code = %v", perr.CodeOf(second.Err))
	}
	if perr.OpOf(second.Err) != string(dom.StepRegistering) {
		t.Fatalf("op = %q", perr.OpOf(second.Err))
	}
	if second.RetrySafe {
		t.Fatalf("a rejected proof is never retry safe")
	}
	if n := f.gw.Calls(ledger.OpIncrease); n != 1 {
		t.Fatalf("score increased %d times", n)
	}
	if s, _ := f.gw.ScoreOf(context.Background(), addr); s != 10 {
		t.Fatalf("score = %d", s)
	}

	cp, _ := f.store.Get(context.Background(), first.Proof)
	if cp.Status != dom.StatusComplete {
		t.Fatalf("replay must not touch the original checkpoint: %+v", cp)
	}
}

func TestExecuteScoreUpdatingFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.Inject(ledger.Fault{Op: ledger.OpIncrease, Err: errors.New("connection reset by peer")})

	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("c"), Address: addr, Delta: 10})
	if res.Success || res.Step != dom.StepScoreUpdating {
		t.Fatalf("result = %+v", res)
	}
	if res.RegistryTx == nil || res.ScoreTx != nil {
		t.Fatalf("txs = %+v", res)
	}
	if !perr.IsCode(res.Err, perr.ErrorCodeLedgerUnconfirmed) || !res.RetrySafe {
		t.Fatalf("err = %v safe=%v", res.Err, res.RetrySafe)
	}
	kit.MustContain(t, res.Cause(), "connection reset")

	cp, _ := f.store.Get(context.Background(), res.Proof)
	if cp.Status != dom.StatusStalled || cp.Step != dom.StepScoreUpdating || !cp.Resumable() {
		t.Fatalf("checkpoint = %+v", cp)
	}

	resumed := f.orch.Resume(context.Background(), cp)
	if !resumed.Success || resumed.Step != dom.StepComplete || resumed.ScoreTx == nil {
		t.Fatalf("resume = %+v err=%v", resumed, resumed.Err)
	}
	if f.gw.Calls(ledger.OpRegister) != 1 {
		t.Fatalf("resume must not register again")
	}
	if s, _ := f.gw.ScoreOf(context.Background(), addr); s != 10 {
		t.Fatalf("score = %d", s)
	}
}

func TestResumeReconfirmsPendingTx(t *testing.T) {
	f := newFixture(t)
	f.gw.Inject(ledger.Fault{Op: ledger.OpIncrease, OnConfirm: true, Err: context.DeadlineExceeded})

	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("d"), Address: addr, Delta: 10})
	if res.Success || res.Step != dom.StepScoreUpdating {
		t.Fatalf("result = %+v", res)
	}
	cp, _ := f.store.Get(context.Background(), res.Proof)
	if cp.Pending == nil || cp.Pending.Op != ledger.OpIncrease {
		t.Fatalf("pending tx not recorded: %+v", cp)
	}

	resumed := f.orch.Resume(context.Background(), cp)
	if !resumed.Success || *resumed.ScoreTx != cp.Pending.Tx {
		t.Fatalf("resume = %+v err=%v", resumed, resumed.Err)
	}
	if n := f.gw.Calls(ledger.OpIncrease); n != 1 {
		t.Fatalf("pending tx was resubmitted (%d submits)", n)
	}
	if s, _ := f.gw.ScoreOf(context.Background(), addr); s != 10 {
		t.Fatalf("score = %d", s)
	}
}

func TestMintFailureKeepsSuccess(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 95)
	f.gw.Inject(ledger.Fault{Op: ledger.OpMint, Err: errors.New("i/o timeout")})

	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("e"), Address: addr, Delta: 10})
	if !res.Success || res.Err == nil || res.BadgeTx != nil {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
	if res.Step != dom.StepMinting || perr.OpOf(res.Err) != string(dom.StepMinting) {
		t.Fatalf("step = %s op = %s", res.Step, perr.OpOf(res.Err))
	}

	cp, _ := f.store.Get(context.Background(), res.Proof)
	if cp.Step != dom.StepMinting || cp.Status != dom.StatusStalled || cp.BadgeTier != tier.Builder {
		t.Fatalf("checkpoint = %+v", cp)
	}

	resumed := f.orch.Resume(context.Background(), cp)
	if resumed.BadgeTx == nil || resumed.Err != nil || resumed.Step != dom.StepComplete {
		t.Fatalf("resume = %+v err=%v", resumed, resumed.Err)
	}
	if f.gw.Calls(ledger.OpIncrease) != 2 {
		t.Fatalf("resume must not touch the score (seed + one increase)")
	}
}

func TestResumeSkipsRegisteredProofWithoutPending(t *testing.T) {
	f := newFixture(t)
	c := claim("f")
	h, err := proof.Hash(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.gw.RegisterProof(context.Background(), addr, h, 10); err != nil {
		t.Fatal(err)
	}

	cp := dom.Checkpoint{
		Proof:     h,
		Address:   addr,
		Delta:     10,
		Step:      dom.StepRegistering,
		Status:    dom.StatusStalled,
		RetrySafe: true,
	}
	if _, err := f.store.Create(context.Background(), cp); err != nil {
		t.Fatal(err)
	}

	res := f.orch.Resume(context.Background(), cp)
	if !res.Success || res.Step != dom.StepComplete {
		t.Fatalf("resume = %+v err=%v", res, res.Err)
	}
	if res.RegistryTx != nil || !res.RegistryTxUnknown || res.ScoreTx == nil {
		t.Fatalf("registry tx should be reported unknown: %+v", res)
	}
	if f.gw.Calls(ledger.OpRegister) != 1 {
		t.Fatalf("registered proof must not be resubmitted")
	}
	if got := f.events.outcomes(dom.StepRegistering); len(got) != 1 || got[0] != dom.OutcomeSkipped {
		t.Fatalf("registering events = %v", got)
	}
}

// flakyReads serves the first score read and fails the rest
type flakyReads struct {
	*ledger.Memory
	reads int
}

func (g *flakyReads) ScoreOf(ctx context.Context, a common.Address) (uint64, error) {
	g.reads++
	if g.reads > 1 {
		return 0, perr.LedgerUnconfirmedf(errors.New("i/o timeout"), "getScore")
	}
	return g.Memory.ScoreOf(ctx, a)
}

func TestReadBackFailureUsesPredictedTotal(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 90)
	gw := &flakyReads{Memory: f.gw}
	orch := New(gw, f.store, f.events, nil, Config{StepTimeout: time.Second, ReadTimeout: time.Second})

	res := orch.Execute(context.Background(), dom.Request{Claim: claim("g"), Address: addr, Delta: 20})
	if !res.Success || res.Err != nil {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
	if res.PrevScore != 90 || res.NewScore != 110 {
		t.Fatalf("scores = %d -> %d", res.PrevScore, res.NewScore)
	}
	if res.BadgeTx == nil || res.Badge != tier.Builder {
		t.Fatalf("predicted total should still reach BUILDER: %+v", res)
	}
}

func TestResumeIgnoresTerminalCheckpoints(t *testing.T) {
	f := newFixture(t)
	for _, st := range []dom.Status{dom.StatusComplete, dom.StatusFailed} {
		res := f.orch.Resume(context.Background(), dom.Checkpoint{Address: addr, Step: dom.StepScoreUpdating, Status: st})
		if res.Success {
			t.Fatalf("%s: result = %+v", st, res)
		}
	}
	if f.gw.Calls(ledger.OpIncrease) != 0 {
		t.Fatalf("terminal checkpoints must not touch the ledger")
	}
}

func TestExecuteRejectsZeroDelta(t *testing.T) {
	f := newFixture(t)
	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("g"), Address: addr})
	if res.Success || res.Step != dom.StepScoring || !perr.IsCode(res.Err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
	if f.gw.Calls(ledger.OpRegister) != 0 {
		t.Fatalf("zero delta must not reach the ledger")
	}
}

func TestExecuteIgnoresCallerCancellationMidStep(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	gw := &cancelOnSubmit{Memory: f.gw, cancel: cancel}
	orch := New(gw, f.store, f.events, nil, Config{StepTimeout: time.Second, ReadTimeout: time.Second})

	res := orch.Execute(ctx, dom.Request{Claim: claim("h"), Address: addr, Delta: 10})
	if !res.Success || res.Step != dom.StepComplete {
		t.Fatalf("result = %+v err=%v", res, res.Err)
	}
}

// cancelOnSubmit cancels the caller right after the proof is submitted
type cancelOnSubmit struct {
	*ledger.Memory
	cancel context.CancelFunc
}

func (c *cancelOnSubmit) RegisterProof(ctx context.Context, a common.Address, p common.Hash, d uint64) (ledger.Pending, error) {
	pend, err := c.Memory.RegisterProof(ctx, a, p, d)
	c.cancel()
	return pend, err
}

func (c *cancelOnSubmit) Confirm(ctx context.Context, p ledger.Pending) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return c.Memory.Confirm(ctx, p)
}

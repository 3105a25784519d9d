package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

type settled struct {
	mu  sync.Mutex
	got []dom.Result
}

func (s *settled) Settle(_ context.Context, res dom.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, res)
	return nil
}

func TestResumerDrivesStalledCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 95)
	f.gw.Inject(ledger.Fault{Op: ledger.OpMint, Err: errors.New("i/o timeout")})
	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("r1"), Address: addr, Delta: 10})
	if res.BadgeTx != nil {
		t.Fatalf("mint should have failed first")
	}

	s := &settled{}
	w := NewResumer(f.orch, f.store, s, nil, ResumerConfig{Concurrency: 2, RetryBase: time.Minute})
	var wg sync.WaitGroup
	n, err := w.Tick(context.Background(), make(chan struct{}, 2), &wg)
	wg.Wait()
	if err != nil || n != 1 {
		t.Fatalf("Tick = %d, %v", n, err)
	}

	cp, _ := f.store.Get(context.Background(), res.Proof)
	if cp.Status != dom.StatusComplete || cp.BadgeTx == nil || cp.Attempts != 1 {
		t.Fatalf("checkpoint = %+v", cp)
	}
	if len(s.got) != 1 || s.got[0].Badge != tier.Builder {
		t.Fatalf("settled = %+v", s.got)
	}

	n, _ = w.Tick(context.Background(), make(chan struct{}, 2), &wg)
	wg.Wait()
	if n != 0 {
		t.Fatalf("complete checkpoints must not be leased again")
	}
}

func TestResumerGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.gw.Inject(ledger.Fault{Op: ledger.OpIncrease, Err: errors.New("dial tcp: refused")})
	res := f.orch.Execute(context.Background(), dom.Request{Claim: claim("r2"), Address: addr, Delta: 10})
	cp, _ := f.store.Get(context.Background(), res.Proof)
	cp.Attempts = 3

	w := NewResumer(f.orch, f.store, nil, nil, ResumerConfig{MaxAttempts: 3})
	w.Handle(context.Background(), cp)

	got, _ := f.store.Get(context.Background(), res.Proof)
	if got.Status != dom.StatusFailed || got.Resumable() {
		t.Fatalf("checkpoint = %+v", got)
	}
	if f.gw.Calls(ledger.OpIncrease) != 1 {
		t.Fatalf("abandoned execution touched the ledger")
	}
}

func TestResumerBackoff(t *testing.T) {
	w := NewResumer(nil, nil, nil, nil, ResumerConfig{RetryBase: time.Second, RetryMax: 10 * time.Second})
	cases := map[int]time.Duration{0: time.Second, 1: 2 * time.Second, 3: 8 * time.Second, 4: 10 * time.Second, 40: 10 * time.Second}
	for attempts, want := range cases {
		if got := w.Backoff(attempts); got != want {
			t.Fatalf("Backoff(%d) = %v, want %v", attempts, got, want)
		}
	}
}

func TestResumerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	w := NewResumer(f.orch, f.store, nil, nil, ResumerConfig{Poll: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
}

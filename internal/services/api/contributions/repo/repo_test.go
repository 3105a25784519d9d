package repo

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
)

var (
	alice = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	bob   = common.HexToAddress("0xde709f2102306220921060314715629080e2fb77")
)

func record(id string, n byte, who common.Address, st contrib.Status) contrib.Record {
	var proof common.Hash
	proof[31] = n
	return contrib.Record{
		ID: id, Address: who, Handle: "octocat", Type: contrib.Commit, Score: int(n), Status: st, Proof: proof,
	}
}

// exerciseRepo runs the store contract against any Repo implementation
func exerciseRepo(t *testing.T, r Repo) {
	t.Helper()
	ctx := context.Background()

	pending := record("c1", 1, alice, contrib.StatusPending)
	if err := r.Record(ctx, pending); err != nil {
		t.Fatalf("record: %v", err)
	}
	tx := common.HexToHash("0xabc")
	if err := r.Settle(ctx, pending.Proof, contrib.StatusVerified, &tx, ""); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// a replay of the same proof must not downgrade the verified row
	replay := record("c1-replay", 1, alice, contrib.StatusPending)
	if err := r.Record(ctx, replay); err != nil {
		t.Fatalf("replay record: %v", err)
	}
	if err := r.Settle(ctx, replay.Proof, contrib.StatusRejected, nil, "proof already used"); err != nil {
		t.Fatalf("replay settle: %v", err)
	}
	if err := r.Settle(ctx, common.HexToHash("0xdead"), contrib.StatusRejected, nil, "x"); err != nil {
		t.Fatalf("settle of unknown proof should be a no-op: %v", err)
	}

	_ = r.Record(ctx, record("c2", 2, alice, contrib.StatusRejected))
	_ = r.Record(ctx, record("c3", 3, bob, contrib.StatusPending))

	got, total, err := r.ListByAddress(ctx, alice, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("list = %d %+v", total, got)
	}
	var verified contrib.Record
	for _, rec := range got {
		if rec.Proof == pending.Proof {
			verified = rec
		}
	}
	if verified.Status != contrib.StatusVerified || verified.OnChainTx == nil || *verified.OnChainTx != tx {
		t.Fatalf("verified row = %+v", verified)
	}
	if verified.Address != alice || verified.Type != contrib.Commit || verified.Handle != "octocat" {
		t.Fatalf("verified row fields = %+v", verified)
	}

	page, total, _ := r.ListByAddress(ctx, alice, 1, 1)
	if total != 2 || len(page) != 1 {
		t.Fatalf("page = %d %+v", total, page)
	}

	st, err := r.TierState(ctx, bob)
	if err != nil || st.Tier != tier.Unranked || st.Cumulative != 0 || st.Address != bob {
		t.Fatalf("empty tier state = %+v, %v", st, err)
	}

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)
	up := tier.Update{Address: bob, Delta: 120, NewCumulative: 120}
	up.State = tier.Merge(tier.State{Address: bob}, 120, first)
	if _, err := r.ApplyTier(ctx, up); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// an older, lower update arriving late does not move anything back
	stale := tier.Update{Address: bob, Delta: 10, NewCumulative: 90}
	stale.State = tier.Merge(tier.State{Address: bob}, 90, later)
	if _, err := r.ApplyTier(ctx, stale); err != nil {
		t.Fatalf("apply stale: %v", err)
	}

	next := tier.Update{Address: bob, Delta: 200, NewCumulative: 320}
	next.State = tier.Merge(tier.State{Address: bob}, 320, later)
	st, err = r.ApplyTier(ctx, next)
	if err != nil {
		t.Fatalf("apply next: %v", err)
	}
	if st.Tier != tier.Contributor || st.Cumulative != 320 {
		t.Fatalf("state = %+v", st)
	}
	if !st.AchievedAt[tier.Builder].Equal(first) || !st.AchievedAt[tier.Contributor].Equal(later) {
		t.Fatalf("milestones = %+v", st.AchievedAt)
	}

	read, err := r.TierState(ctx, bob)
	if err != nil || read.Cumulative != 320 || !read.AchievedAt[tier.Builder].Equal(first) {
		t.Fatalf("read back = %+v, %v", read, err)
	}
}

func TestMemoryRepo(t *testing.T) {
	exerciseRepo(t, NewMemory())
}

func TestMemoryListOrderIsNewestFirst(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()
	for i := byte(1); i <= 3; i++ {
		_ = r.Record(ctx, record(string('a'+rune(i)), i, alice, contrib.StatusPending))
	}
	got, _, _ := r.ListByAddress(ctx, alice, 10, 0)
	if len(got) != 3 || got[0].Score != 3 || got[2].Score != 1 {
		t.Fatalf("order = %+v", got)
	}
	if got, total, _ := r.ListByAddress(ctx, alice, 10, 5); got != nil || total != 3 {
		t.Fatalf("past the end = %+v %d", got, total)
	}
}

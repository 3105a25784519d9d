package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/domain"
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/repo"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

var addr = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")

type fakeSubmitter struct {
	out submission.Outcome
	err error
	got contrib.Claim
}

func (f *fakeSubmitter) Submit(_ context.Context, c contrib.Claim) (submission.Outcome, error) {
	f.got = c
	return f.out, f.err
}

type fakeLedger struct {
	score, badges       uint64
	scoreErr, badgesErr error
}

func (f fakeLedger) ScoreOf(context.Context, common.Address) (uint64, error) {
	return f.score, f.scoreErr
}

func (f fakeLedger) BadgeBalance(context.Context, common.Address) (uint64, error) {
	return f.badges, f.badgesErr
}

func TestSubmitMapsOutcome(t *testing.T) {
	sub := &fakeSubmitter{out: submission.Outcome{
		Delta:  12,
		Signal: &submission.SignalSummary{Handle: "octocat", EcosystemRepoCount: 2, EcosystemCommitTotal: 9},
	}}
	s := New(repo.NewMemory(), sub, nil, Options{})
	out, err := s.Submit(context.Background(), domain.SubmitInput{
		ProfileURL: "https://github.com/octocat", Address: addr.Hex(), ContributionType: "commit",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Delta != 12 || out.Signal == nil || out.Signal.EcosystemCommitTotal != 9 {
		t.Fatalf("out = %+v", out)
	}
	if sub.got.Type != "commit" || sub.got.ProfileURL != "https://github.com/octocat" {
		t.Fatalf("claim = %+v", sub.got)
	}

	sub.err = perr.PolicyRejectf("submission rejected: no ecosystem contributions found")
	if _, err := s.Submit(context.Background(), domain.SubmitInput{}); !perr.IsCode(err, perr.ErrorCodePolicyRejection) {
		t.Fatalf("err = %v", err)
	}
}

func TestContributorView(t *testing.T) {
	r := repo.NewMemory()
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	_, _ = r.ApplyTier(context.Background(), tier.Update{Address: addr, State: tier.Merge(tier.State{Address: addr}, 120, at)})

	cases := []struct {
		name   string
		ledger domain.LedgerReader
		check  func(t *testing.T, c domain.Contributor)
	}{
		{"no ledger", nil, func(t *testing.T, c domain.Contributor) {
			if c.OnChainScore != nil || c.Tier != "BUILDER" || !c.TierAchievedAt["BUILDER"].Equal(at) {
				t.Fatalf("c = %+v", c)
			}
		}},
		{"ledger ahead", fakeLedger{score: 310, badges: 2}, func(t *testing.T, c domain.Contributor) {
			if c.Tier != "CONTRIBUTOR" || *c.OnChainScore != 310 || *c.BadgeBalance != 2 || c.CumulativeScore != 120 {
				t.Fatalf("c = %+v", c)
			}
		}},
		{"ledger down", fakeLedger{scoreErr: errors.New("dial tcp: refused")}, func(t *testing.T, c domain.Contributor) {
			if c.OnChainScore != nil || c.Tier != "BUILDER" {
				t.Fatalf("c = %+v", c)
			}
			kit.MustContain(t, c.LedgerError, "refused")
		}},
		{"badge read fails", fakeLedger{score: 120, badgesErr: errors.New("timeout")}, func(t *testing.T, c domain.Contributor) {
			if c.OnChainScore == nil || c.BadgeBalance != nil || c.LedgerError == "" {
				t.Fatalf("c = %+v", c)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(r, &fakeSubmitter{}, tc.ledger, Options{})
			c, err := s.Contributor(context.Background(), addr.Hex())
			if err != nil {
				t.Fatal(err)
			}
			tc.check(t, c)
		})
	}
}

func TestContributorUnknownAddressIsUnranked(t *testing.T) {
	s := New(repo.NewMemory(), &fakeSubmitter{}, nil, Options{})
	c, err := s.Contributor(context.Background(), "0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if c.Tier != "UNRANKED" || c.CumulativeScore != 0 {
		t.Fatalf("c = %+v", c)
	}
}

func TestContributionsPaging(t *testing.T) {
	r := repo.NewMemory()
	for i := range 30 {
		proof := common.BigToHash(common.Big1)
		proof[0] = byte(i)
		_ = r.Record(context.Background(), contrib.Record{ID: string(rune('a' + i)), Address: addr, Proof: proof, Score: i})
	}
	s := New(r, &fakeSubmitter{}, nil, Options{})

	page, err := s.Contributions(context.Background(), addr.Hex(), domain.ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 30 || page.Limit != defaultLimit || len(page.Items) != defaultLimit || page.Items[0].Score != 29 {
		t.Fatalf("page = %+v", page)
	}

	page, _ = s.Contributions(context.Background(), addr.Hex(), domain.ListQuery{Limit: 1000, Offset: 25})
	if page.Limit != maxLimit || len(page.Items) != 5 {
		t.Fatalf("page = %+v", page)
	}

	if _, err := s.Contributions(context.Background(), "0xnope", domain.ListQuery{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewPanicsWithoutDeps(t *testing.T) {
	kit.MustPanic(t, func() { New(nil, &fakeSubmitter{}, nil, Options{}) })
	kit.MustPanic(t, func() { New(repo.NewMemory(), nil, nil, Options{}) })
}

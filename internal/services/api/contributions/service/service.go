// Package service contains contributions workflows
package service

import (
	"context"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/identity"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/domain"
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/repo"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service defines the service contract for contributions
type Service interface{ domain.ServicePort }

// Submitter runs one claim through the pipeline
type Submitter interface {
	Submit(ctx context.Context, c contrib.Claim) (submission.Outcome, error)
}

// Options tunes the service
type Options struct {
	// LedgerTimeout bounds each on-chain read of the contributor view
	LedgerTimeout time.Duration
}

// Svc implements the Service interface
type Svc struct {
	repo    repo.Repo
	submit  Submitter
	ledger  domain.LedgerReader
	timeout time.Duration
}

// New creates a new contributions service; ledger may be nil to skip on-chain reads
func New(r repo.Repo, s Submitter, ledger domain.LedgerReader, o Options) *Svc {
	if r == nil {
		panic("contributions.Service requires a non nil Repo")
	}
	if s == nil {
		panic("contributions.Service requires a non nil Submitter")
	}
	if o.LedgerTimeout <= 0 {
		o.LedgerTimeout = 10 * time.Second
	}
	return &Svc{repo: r, submit: s, ledger: ledger, timeout: o.LedgerTimeout}
}

// Submit runs the claim and shapes the outcome for the wire
func (s *Svc) Submit(ctx context.Context, in domain.SubmitInput) (domain.SubmitOutput, error) {
	out, err := s.submit.Submit(ctx, in.Claim())
	if err != nil {
		return domain.SubmitOutput{}, err
	}
	res := domain.SubmitOutput{
		Record:            out.Record,
		Opinion:           out.Opinion,
		Delta:             out.Delta,
		OwnershipVerified: out.OwnershipVerified,
		Execution:         out.Execution,
		Tier:              out.Tier,
		Warning:           out.Warning,
	}
	if out.Signal != nil {
		res.Signal = &domain.SignalOutput{
			Handle:               out.Signal.Handle,
			EcosystemRepoCount:   out.Signal.EcosystemRepoCount,
			EcosystemCommitTotal: out.Signal.EcosystemCommitTotal,
			Specialties:          out.Signal.Specialties,
		}
	}
	return res, nil
}

// Contributor combines the stored tier with the ledger's score and badge balance
// a failing ledger read still returns the stored view with the error attached
func (s *Svc) Contributor(ctx context.Context, address string) (domain.Contributor, error) {
	addr, err := identity.ParseAddress(address)
	if err != nil {
		return domain.Contributor{}, err
	}
	st, err := s.repo.TierState(ctx, addr)
	if err != nil {
		return domain.Contributor{}, err
	}

	out := domain.Contributor{
		Address:         addr.Hex(),
		Tier:            st.Tier.String(),
		CumulativeScore: st.Cumulative,
	}
	if len(st.AchievedAt) > 0 {
		out.TierAchievedAt = make(map[string]time.Time, len(st.AchievedAt))
		for t, at := range st.AchievedAt {
			out.TierAchievedAt[t.String()] = at
		}
	}
	if s.ledger == nil {
		return out, nil
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	score, err := s.ledger.ScoreOf(rctx, addr)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("address", addr.Hex()).Msg("ledger score read failed")
		out.LedgerError = err.Error()
		return out, nil
	}
	out.OnChainScore = &score
	if t := tier.Resolve(score); t > st.Tier {
		// the ledger is ahead of the store, e.g. a settle that has not landed yet
		out.Tier = t.String()
	}

	badges, err := s.ledger.BadgeBalance(rctx, addr)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("address", addr.Hex()).Msg("ledger badge read failed")
		out.LedgerError = err.Error()
		return out, nil
	}
	out.BadgeBalance = &badges
	return out, nil
}

// Contributions lists stored records for address, newest first
func (s *Svc) Contributions(ctx context.Context, address string, q domain.ListQuery) (domain.ContributionPage, error) {
	addr, err := identity.ParseAddress(address)
	if err != nil {
		return domain.ContributionPage{}, err
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)
	q.Offset = max(q.Offset, 0)

	items, total, err := s.repo.ListByAddress(ctx, addr, q.Limit, q.Offset)
	if err != nil {
		return domain.ContributionPage{}, err
	}
	return domain.ContributionPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// Package submission is the boundary that turns a raw claim into a scored, executed contribution
package submission

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/identity"
	"github.com/ditsyandrea22/celo-identity/internal/core/proof"
	"github.com/ditsyandrea22/celo-identity/internal/core/scoring"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	execdom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// Extractor derives the activity signal for a profile
type Extractor interface {
	Extract(ctx context.Context, profileURL string) (contrib.ActivitySignal, error)
}

// Verifier produces the advisory opinion; it never fails
type Verifier interface {
	Verify(ctx context.Context, sig contrib.ActivitySignal) contrib.Opinion
}

// Sink is where contribution records and tier updates are delivered
// Record upserts by proof hash so redelivery is harmless; a verified record is never downgraded
type Sink interface {
	Record(ctx context.Context, rec contrib.Record) error
	Settle(ctx context.Context, proof common.Hash, status contrib.Status, tx *common.Hash, reason string) error
	ApplyTier(ctx context.Context, u tier.Update) (tier.State, error)
}

// Options tunes the service
type Options struct {
	Metrics *metrics.Manager
	NewID   func() string
	Now     func() time.Time
}

// Service composes extraction, verification, scoring and execution
type Service struct {
	extract Extractor
	verify  Verifier
	exec    execdom.ExecutorPort
	sink    Sink
	metrics *metrics.Manager
	newID   func() string
	now     func() time.Time
}

// Outcome is everything a caller learns about one submission
type Outcome struct {
	Record            contrib.Record  `json:"record"`
	Opinion           contrib.Opinion `json:"opinion"`
	Delta             int             `json:"delta"`
	OwnershipVerified bool            `json:"ownership_verified"`
	Execution         *execdom.Result `json:"execution,omitempty"`
	Tier              *tier.State     `json:"tier,omitempty"`
	Warning           string          `json:"warning,omitempty"`
	Signal            *SignalSummary  `json:"signal,omitempty"`
}

// SignalSummary is the part of the activity signal echoed back to the claimant
type SignalSummary struct {
	Handle               string   `json:"handle"`
	EcosystemRepoCount   int      `json:"ecosystem_repo_count"`
	EcosystemCommitTotal int      `json:"ecosystem_commit_total"`
	Specialties          []string `json:"specialties,omitempty"`
}

// New wires the service; sink may be nil when nothing persists outcomes
func New(x Extractor, v Verifier, exec execdom.ExecutorPort, sink Sink, o Options) *Service {
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{
		extract: x,
		verify:  v,
		exec:    exec,
		sink:    sink,
		metrics: o.Metrics,
		newID:   o.NewID,
		now:     o.Now,
	}
}

// Submit runs one claim end to end
//
// Input errors are returned before any external call. Rejections come back as
// PolicyRejection with the reason; ledger failures carry the failing step as Op
func (s *Service) Submit(ctx context.Context, c contrib.Claim) (Outcome, error) {
	addr, handle, err := validate(&c)
	if err != nil {
		s.metrics.Submission("invalid")
		return Outcome{}, err
	}
	ph, err := proof.Hash(c)
	if err != nil {
		s.metrics.Submission("invalid")
		return Outcome{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "claim cannot be canonicalized")
	}
	ctx = logger.WithSubmission(ctx, addr.Hex(), ph.Hex())
	log := logger.C(ctx)

	out := Outcome{Record: contrib.Record{
		ID:      s.newID(),
		Address: addr,
		Handle:  handle,
		Type:    c.Type,
		Status:  contrib.StatusPending,
		Proof:   ph,
	}}

	sig, err := s.extract.Extract(ctx, c.ProfileURL)
	if err != nil {
		s.metrics.Submission("upstream")
		return out, boundary(err)
	}
	out.Signal = &SignalSummary{
		Handle:               sig.Handle,
		EcosystemRepoCount:   len(sig.EcosystemRepos),
		EcosystemCommitTotal: sig.EcosystemCommitTotal,
		Specialties:          sig.Specialties,
	}

	owned, err := ownership(sig, addr)
	if err != nil {
		return s.reject(ctx, out, err.Error(), err)
	}
	out.OwnershipVerified = owned

	out.Opinion = s.verify.Verify(ctx, sig)
	out.Delta = scoring.Delta(scoring.Input{Type: c.Type, Opinion: out.Opinion, OwnershipVerified: owned})
	s.metrics.ScoreDelta(out.Delta)
	log.Info().
		Str("handle", handle).
		Str("recommendation", string(out.Opinion.Recommendation)).
		Str("source", string(out.Opinion.Source)).
		Bool("ownership", owned).
		Int("delta", out.Delta).
		Msg("claim scored")

	if out.Opinion.Recommendation == contrib.Reject || out.Delta == 0 {
		reason := out.Opinion.Rationale
		if reason == "" {
			reason = "contribution scored zero"
		}
		return s.reject(ctx, out, reason, perr.PolicyRejectf("submission rejected: %s", reason))
	}

	out.Record.Score = out.Delta
	if err := s.record(ctx, out.Record); err != nil {
		s.metrics.Submission("store")
		return out, err
	}

	res := s.exec.Execute(ctx, execdom.Request{Claim: c, Address: addr, Delta: uint64(out.Delta)})
	out.Execution = &res

	if !res.Success {
		s.metrics.Submission("ledger")
		if !res.RetrySafe {
			out.Record.Status = contrib.StatusRejected
			out.Record.Reason = res.Cause()
			s.settle(ctx, out.Record)
		}
		return out, res.Err
	}

	state, err := Settle(ctx, s.sink, res, s.now())
	if err != nil {
		log.Error().Err(err).Msg("tier update not stored; the ledger remains authoritative")
	}
	out.Tier = state
	out.Record.Status = contrib.StatusVerified
	out.Record.OnChainTx = res.ScoreTx
	if res.Err != nil {
		out.Warning = res.Cause()
	}
	s.metrics.Submission("accepted")
	return out, nil
}

func (s *Service) reject(ctx context.Context, out Outcome, reason string, err error) (Outcome, error) {
	s.metrics.Submission("rejected")
	out.Record.Status = contrib.StatusRejected
	out.Record.Reason = reason
	if serr := s.record(ctx, out.Record); serr != nil {
		logger.C(ctx).Error().Err(serr).Msg("rejected record not stored")
	}
	logger.C(ctx).Info().Str("reason", reason).Msg("submission rejected")
	return out, err
}

func (s *Service) record(ctx context.Context, rec contrib.Record) error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Record(ctx, rec)
}

func (s *Service) settle(ctx context.Context, rec contrib.Record) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Settle(context.WithoutCancel(ctx), rec.Proof, rec.Status, rec.OnChainTx, rec.Reason); err != nil {
		logger.C(ctx).Error().Err(err).Msg("record status not stored")
	}
}

// validate normalizes c in place and rejects malformed input before any external call
func validate(c *contrib.Claim) (common.Address, string, error) {
	t, err := contrib.ParseType(string(c.Type))
	if err != nil {
		return common.Address{}, "", perr.WithField(perr.InvalidArgf("%v", err), "contribution_type")
	}
	c.Type = t

	handle, err := identity.ParseProfileURL(c.ProfileURL)
	if err != nil {
		return common.Address{}, "", err
	}
	addr, err := identity.ParseAddress(c.Address)
	if err != nil {
		return common.Address{}, "", err
	}

	// the proof preimage; equivalent spellings of one claim must hash alike
	c.ProfileURL = "https://github.com/" + strings.ToLower(handle)
	c.Address = addr.Hex()
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.EvidenceURL = strings.TrimSpace(c.EvidenceURL)
	return addr, handle, nil
}

// ownership binds the declared address to the profile
// a well formed bio address that differs is a hard rejection; no or malformed bio address only loses the bonus
func ownership(sig contrib.ActivitySignal, declared common.Address) (bool, error) {
	if sig.DeclaredAddress == nil || !sig.AddressWellFormed {
		return false, nil
	}
	if !identity.Equal(sig.DeclaredAddress.Hex(), declared.Hex()) {
		return false, perr.WithField(
			perr.PolicyRejectf("declared address does not match the address in the profile bio"),
			"address",
		)
	}
	return true, nil
}

// boundary keeps raw transport errors from leaking out of the submission
func boundary(err error) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "identity source unavailable")
}

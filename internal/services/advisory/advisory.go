// Package advisory produces the opinion that gates scoring
package advisory

import (
	"context"
	"math"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
)

// Oracle is an external assessor; any error sends the verifier to its fallback
type Oracle interface {
	Assess(ctx context.Context, sig contrib.ActivitySignal) (contrib.Opinion, error)
}

// NoContributions is the rationale attached to the zero-commit short circuit
const NoContributions = "no ecosystem contributions found"

// Verifier turns a signal into an opinion; it never fails
type Verifier struct {
	oracle  Oracle
	metrics *metrics.Manager
	log     logger.Logger
}

// New builds a Verifier; a nil oracle always uses the fallback formula
func New(o Oracle, m *metrics.Manager) *Verifier {
	return &Verifier{oracle: o, metrics: m, log: *logger.Named("advisory")}
}

// Verify returns the opinion for sig
func (v *Verifier) Verify(ctx context.Context, sig contrib.ActivitySignal) contrib.Opinion {
	op := v.verify(ctx, sig)
	v.metrics.Opinion(string(op.Source))
	logger.C(ctx).Info().
		Str("handle", sig.Handle).
		Str("source", string(op.Source)).
		Str("recommendation", string(op.Recommendation)).
		Float64("final", op.Final()).
		Msg("advisory opinion")
	return op
}

func (v *Verifier) verify(ctx context.Context, sig contrib.ActivitySignal) contrib.Opinion {
	if sig.EcosystemCommitTotal == 0 {
		return contrib.Opinion{
			Authentic:      true,
			Recommendation: contrib.Reject,
			Rationale:      NoContributions,
			Source:         contrib.SourcePolicy,
		}
	}
	if v.oracle != nil {
		op, err := v.oracle.Assess(ctx, sig)
		if err == nil {
			op = op.Clamp()
			op.Source = contrib.SourceOracle
			return op
		}
		v.log.Warn().Err(err).Str("handle", sig.Handle).Msg("oracle failed, using fallback")
	}
	return Fallback(sig)
}

// Fallback is the deterministic heuristic opinion
func Fallback(sig contrib.ActivitySignal) contrib.Opinion {
	commits := float64(sig.EcosystemCommitTotal)
	impact := contrib.Clamp100(float64(sig.FollowerCount)*1.5 + math.Min(commits*5, 100)*0.4)
	quality := contrib.Clamp100(sig.AvgRepoStars() + float64(len(sig.Languages))*8)
	authenticity := 75.0
	if sig.EcosystemCommitTotal > 0 {
		authenticity = 90
	}
	op := contrib.Opinion{
		Authentic:    authenticity >= 50,
		Authenticity: authenticity,
		Impact:       impact,
		Quality:      quality,
		Rationale:    "heuristic assessment from public activity",
		Source:       contrib.SourceFallback,
	}
	switch final := op.Final(); {
	case final > 70:
		op.Recommendation = contrib.Accept
	case final > 50:
		op.Recommendation = contrib.Review
	default:
		op.Recommendation = contrib.Reject
	}
	return op
}

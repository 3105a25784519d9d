// Package scoring turns an advisory opinion into a bounded score delta
package scoring

import (
	"math"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
)

// OwnershipBonus multiplies the delta when the declared address matches the profile
const OwnershipBonus = 1.2

// InauthenticFactor is the flat share of the base score paid to inauthentic claims
const InauthenticFactor = 0.25

// Input is everything the calculator needs for one claim
type Input struct {
	Type              contrib.Type
	Opinion           contrib.Opinion
	OwnershipVerified bool
}

// Delta computes the score delta for in; it is total and pure
// the result is always within [0, Type.MaxDelta()]
func Delta(in Input) int {
	base := float64(in.Type.BaseScore())
	if base == 0 {
		return 0
	}
	op := in.Opinion.Clamp()

	if op.Recommendation == contrib.Reject || op.Final() == 0 {
		return 0
	}
	if !op.Authentic {
		return int(math.Round(base * InauthenticFactor))
	}

	v := base *
		(1 + op.Impact/150) *
		(1 + op.Quality/160) *
		(1 + op.Authenticity/200)
	if in.OwnershipVerified {
		v *= OwnershipBonus
	}
	return min(int(math.Round(v)), in.Type.MaxDelta())
}
